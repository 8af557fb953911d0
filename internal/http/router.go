package api

import (
	"log"
	stdhttp "net/http"
	"time"

	intconfig "busbooking/internal/config"
	"busbooking/internal/domain/models"
	h "busbooking/internal/http/handlers"
	"busbooking/internal/http/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(env intconfig.Env) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     env.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Accept", "Origin", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	secret := []byte(env.JWTSecret)
	authn := middleware.RequireAuth(secret)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)

		auth := api.Group("/auth")
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.POST("/reset-password/:token", h.ResetPassword)
		auth.GET("/profile", authn, h.GetProfile)
		auth.PUT("/profile", authn, h.UpdateProfile)
		auth.POST("/change-password", authn, h.ChangePassword)

		buses := api.Group("/buses")
		buses.GET("", h.ListBuses)
		buses.GET("/search", h.SearchBuses)
		buses.GET("/:id", h.GetBusByID)
		buses.GET("/:id/seats", h.GetBusSeatLayout)

		bookings := api.Group("/bookings", authn)
		bookings.GET("", h.ListBookings)
		bookings.POST("", h.CreateBooking)
		bookings.GET("/:id", h.GetBookingByID)
		bookings.POST("/:id/cancel", h.CancelBooking)
		bookings.GET("/:id/eticket", h.GetBookingETicket)

		payments := api.Group("/payments")
		payments.POST("/checkout/:bookingId", authn, h.CheckoutPayment)
		payments.POST("/process/:bookingId", authn, h.ProcessPayment)
		payments.POST("/webhook", h.PaymentWebhook)

		admin := api.Group("/admin", authn, adminOnly)
		admin.GET("/dashboard", h.AdminDashboard)
		admin.GET("/bookings", h.ListBookings)
		admin.POST("/buses", h.AdminCreateBus)
		admin.PUT("/buses/:id", h.AdminUpdateBus)
		admin.DELETE("/buses/:id", h.AdminDeleteBus)
		admin.PUT("/buses/:id/seats", h.AdminUpdateSeatLayout)
		admin.GET("/users", h.AdminListUsers)
		admin.PUT("/users/:id", h.AdminUpdateUser)
		admin.DELETE("/users/:id", h.AdminDeleteUser)
	}

	return r
}
