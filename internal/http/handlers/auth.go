package handlers

import (
	"net/http"
	"strings"
	"time"

	"busbooking/internal/domain"
	"busbooking/internal/domain/models"
	"busbooking/internal/http/middleware"
	"busbooking/internal/repositories"
	"busbooking/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type registerRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// POST /api/auth/register
func Register(c *gin.Context) {
	var req registerRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	switch {
	case req.FirstName == "":
		RespondDomainError(c, domain.ValidationError{Field: "firstName", Msg: "required"})
		return
	case req.Email == "" || !strings.Contains(req.Email, "@"):
		RespondDomainError(c, domain.ValidationError{Field: "email", Msg: "a valid email is required"})
		return
	case len(req.Password) < 6:
		RespondDomainError(c, domain.ValidationError{Field: "password", Msg: "must be at least 6 characters"})
		return
	case req.Password != req.ConfirmPassword:
		RespondDomainError(c, domain.ValidationError{Field: "confirmPassword", Msg: "passwords do not match"})
		return
	case len(req.Phone) < 10 || len(req.Phone) > 15:
		RespondDomainError(c, domain.ValidationError{Field: "phone", Msg: "must be 10-15 digits"})
		return
	}

	users := repositories.UserRepository{}
	exists, err := users.EmailExists(req.Email)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if exists {
		RespondDomainError(c, domain.ConflictError{Resource: "email", Msg: "already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		RespondDomainError(c, domain.InternalError{Msg: "failed to hash password", Err: err})
		return
	}

	user := models.User{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        req.Email,
		PasswordHash: string(hash),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         models.RoleCustomer,
		IsActive:     true,
	}
	if err := users.Create(user); err != nil {
		RespondDomainError(c, err)
		return
	}

	token, err := issueToken(user)
	if err != nil {
		RespondDomainError(c, domain.InternalError{Msg: "failed to sign token", Err: err})
		return
	}

	utils.LogEvent(middleware.GetRequestID(c), "auth", "register", "user_id="+user.ID)
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/login
func Login(c *gin.Context) {
	var req loginRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	users := repositories.UserRepository{}
	user, err := users.GetByEmail(req.Email)
	if err != nil {
		if domain.IsNotFound(err) {
			RespondDomainError(c, domain.UnauthorizedError{Msg: "invalid email or password"})
			return
		}
		RespondDomainError(c, err)
		return
	}
	if !user.IsActive {
		RespondDomainError(c, domain.UnauthorizedError{Msg: "account is deactivated"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		RespondDomainError(c, domain.UnauthorizedError{Msg: "invalid email or password"})
		return
	}

	token, err := issueToken(user)
	if err != nil {
		RespondDomainError(c, domain.InternalError{Msg: "failed to sign token", Err: err})
		return
	}

	utils.LogEvent(middleware.GetRequestID(c), "auth", "login", "user_id="+user.ID)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// POST /api/auth/logout
// Bearer tokens are stateless, the client discards the token; the endpoint
// exists so clients have a uniform flow.
func Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// GET /api/auth/profile
func GetProfile(c *gin.Context) {
	auth, ok := mustAuth(c)
	if !ok {
		return
	}
	user, err := repositories.UserRepository{}.GetByID(auth.UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type updateProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// PUT /api/auth/profile
func UpdateProfile(c *gin.Context) {
	auth, ok := mustAuth(c)
	if !ok {
		return
	}
	var req updateProfileRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	users := repositories.UserRepository{}
	user, err := users.GetByID(auth.UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if v := strings.TrimSpace(req.FirstName); v != "" {
		user.FirstName = v
	}
	if v := strings.TrimSpace(req.LastName); v != "" {
		user.LastName = v
	}
	if v := strings.TrimSpace(req.Phone); v != "" {
		user.Phone = v
	}
	if err := users.UpdateProfile(user); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "profile updated", "user": user})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// POST /api/auth/change-password
func ChangePassword(c *gin.Context) {
	auth, ok := mustAuth(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if len(req.NewPassword) < 6 {
		RespondDomainError(c, domain.ValidationError{Field: "newPassword", Msg: "must be at least 6 characters"})
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		RespondDomainError(c, domain.ValidationError{Field: "confirmPassword", Msg: "passwords do not match"})
		return
	}

	users := repositories.UserRepository{}
	user, err := users.GetByID(auth.UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		RespondDomainError(c, domain.UnauthorizedError{Msg: "current password is incorrect"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		RespondDomainError(c, domain.InternalError{Msg: "failed to hash password", Err: err})
		return
	}
	if err := users.UpdatePassword(user.ID, string(hash)); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// POST /api/auth/forgot-password
func ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	users := repositories.UserRepository{}
	user, err := users.GetByEmail(req.Email)
	if err != nil {
		// Do not reveal whether the address exists.
		if domain.IsNotFound(err) {
			c.JSON(http.StatusOK, gin.H{"message": "if the address is registered, a reset email has been sent"})
			return
		}
		RespondDomainError(c, err)
		return
	}

	token := uuid.NewString()
	expires := time.Now().Add(time.Hour)
	if err := users.SetResetToken(user.ID, token, expires); err != nil {
		RespondDomainError(c, err)
		return
	}

	resetURL := env.BaseURL + "/reset-password/" + token
	if err := mailer.SendPasswordReset(user.Email, resetURL); err != nil {
		RespondDomainError(c, domain.InternalError{Msg: "failed to send reset email", Err: err})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "if the address is registered, a reset email has been sent"})
}

type resetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// POST /api/auth/reset-password/:token
func ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if len(req.Password) < 6 {
		RespondDomainError(c, domain.ValidationError{Field: "password", Msg: "must be at least 6 characters"})
		return
	}
	if req.Password != req.ConfirmPassword {
		RespondDomainError(c, domain.ValidationError{Field: "confirmPassword", Msg: "passwords do not match"})
		return
	}

	users := repositories.UserRepository{}
	user, err := users.GetByResetToken(c.Param("token"), time.Now())
	if err != nil {
		if domain.IsNotFound(err) {
			RespondDomainError(c, domain.ValidationError{Msg: "reset token is invalid or has expired"})
			return
		}
		RespondDomainError(c, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		RespondDomainError(c, domain.InternalError{Msg: "failed to hash password", Err: err})
		return
	}
	if err := users.UpdatePassword(user.ID, string(hash)); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password has been reset"})
}

func issueToken(user models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"exp":     time.Now().Add(env.TokenTTL).Unix(),
	})
	return token.SignedString([]byte(env.JWTSecret))
}
