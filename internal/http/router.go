package api

import (
	"database/sql"
	"log"
	stdhttp "net/http"
	"strings"

	"busticket/internal/auth"
	intconfig "busticket/internal/config"
	"busticket/internal/domain"
	h "busticket/internal/http/handlers"
	"busticket/internal/http/middleware"
	"busticket/internal/repositories"
	"busticket/internal/services"

	"github.com/gin-gonic/gin"
)

// NewHandler wires the services for db from env.
func NewHandler(env intconfig.Env, db *sql.DB) (*h.Handler, middleware.Authenticator) {
	issuer := auth.NewIssuer(env.JWTSecret, env.TokenTTL)
	validator := auth.Validator{
		Issuer:     issuer,
		Sessions:   repositories.SessionRepository{DB: db},
		CookieName: env.AuthCookieName,
	}
	handler := &h.Handler{
		DB:           db,
		Auth:         services.AuthService{DB: db, Issuer: issuer},
		Bookings:     services.BookingService{DB: db, CancellationWindow: env.CancellationWindow},
		Search:       services.SearchService{DB: db},
		Operators:    services.OperatorService{DB: db},
		Admin:        services.AdminService{DB: db},
		Reviews:      services.ReviewService{DB: db},
		Docs:         services.DocsService{DB: db},
		CookieName:   env.AuthCookieName,
		SecureCookie: strings.EqualFold(env.GinMode, gin.ReleaseMode),
	}
	return handler, validator
}

func NewRouter(env intconfig.Env, db *sql.DB) *gin.Engine {
	handler, validator := NewHandler(env, db)
	return Mount(env, handler, validator)
}

// Mount builds the engine and registers every route on it.
func Mount(env intconfig.Env, hd *h.Handler, authn middleware.Authenticator) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		middleware.AbortWithError(c, stdhttp.StatusNotFound, "route_not_found", "route not found: "+c.Request.Method+" "+c.Request.URL.Path)
	})

	requireAuth := middleware.RequireAuth(authn)

	api := r.Group("/api")
	{
		// Public
		api.GET("/health", hd.Health)
		api.GET("/db-check", hd.DBCheck)
		api.GET("/search_routes", hd.SearchRoutes)
		api.GET("/routes", hd.ListRoutes)
		api.GET("/reviews", hd.PublicReviews)

		// Auth
		authGroup := api.Group("/auth")
		authGroup.POST("/register", hd.Register)
		authGroup.POST("/register_operator", hd.RegisterOperator)
		authGroup.POST("/login", hd.Login)
		authGroup.POST("/logout", requireAuth, hd.Logout)
		authGroup.GET("/me", requireAuth, hd.Me)
		authGroup.PUT("/profile", requireAuth, hd.UpdateProfile)
		authGroup.POST("/change_password", requireAuth, hd.ChangePassword)

		// Bookings
		bookings := api.Group("/bookings", requireAuth)
		bookings.POST("/create_booking", hd.CreateBooking)

		// Passenger (any signed-in user)
		passenger := api.Group("/passenger", requireAuth)
		passenger.GET("/bookings", hd.MyBookings)
		passenger.GET("/bookings/:id", hd.GetBooking)
		passenger.POST("/bookings/:id/pay", hd.PayBooking)
		passenger.GET("/bookings/:id/ticket.pdf", hd.TicketPDF)
		passenger.POST("/cancel_booking", hd.CancelBooking)
		passenger.POST("/reviews", hd.CreateReview)

		// Operator
		operator := api.Group("/operator", requireAuth, middleware.RequireRoles(domain.RoleOperator))
		operator.GET("/profile", hd.OperatorProfile)
		operator.PUT("/profile", hd.UpdateOperatorProfile)
		operator.GET("/buses", hd.ListBuses)
		operator.POST("/buses", hd.CreateBus)
		operator.GET("/buses/:id", hd.GetBus)
		operator.PUT("/buses/:id", hd.UpdateBus)
		operator.DELETE("/buses/:id", hd.DeleteBus)
		operator.GET("/schedules", hd.ListSchedules)
		operator.POST("/schedules", hd.CreateSchedule)
		operator.GET("/schedules/:id", hd.GetSchedule)
		operator.PUT("/schedules/:id", hd.UpdateSchedule)
		operator.DELETE("/schedules/:id", hd.DeleteSchedule)
		operator.GET("/bookings", hd.OperatorBookings)
		operator.POST("/tickets/verify", hd.VerifyTicket)

		// Admin
		admin := api.Group("/admin", requireAuth, middleware.RequireRoles(domain.RoleAdmin))
		admin.GET("/dashboard", hd.AdminDashboard)
		admin.GET("/users", hd.AdminListUsers)
		admin.GET("/users/:id", hd.AdminGetUser)
		admin.PUT("/users/:id/status", hd.AdminSetUserStatus)
		admin.DELETE("/users/:id", hd.AdminDeleteUser)
		admin.GET("/operators", hd.AdminListOperators)
		admin.GET("/operators/:id", hd.AdminGetOperator)
		admin.PUT("/operators/:id/verify", hd.AdminVerifyOperator())
		admin.PUT("/operators/:id/reject", hd.AdminRejectOperator())
		admin.PUT("/operators/:id/suspend", hd.AdminSuspendOperator())
		admin.PUT("/operators/:id/activate", hd.AdminActivateOperator())
		admin.DELETE("/operators/:id", hd.AdminDeleteOperator)
		admin.GET("/routes", hd.ListRoutes)
		admin.POST("/routes", hd.AdminCreateRoute)
		admin.PUT("/routes/:id", hd.AdminUpdateRoute)
		admin.DELETE("/routes/:id", hd.AdminDeleteRoute)
		admin.GET("/bookings", hd.AdminBookings)
		admin.GET("/reviews", hd.AdminReviews)
		admin.PUT("/reviews/:id/approve", hd.ApproveReview)
		admin.DELETE("/reviews/:id", hd.DeleteReview)
	}

	return r
}
