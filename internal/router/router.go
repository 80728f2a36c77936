package router

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"libris/docs"
	"libris/internal/auth"
	"libris/internal/config"
	"libris/internal/errors"
	"libris/internal/handler"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Books       *handler.BookHandler
	Copies      *handler.CopyHandler
	Circulation *handler.CirculationHandler
	Users       *handler.UserHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, logger *slog.Logger, h Handlers) {
	e.JSONSerializer = JSONSerializer{}
	e.Validator = NewValidator()

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("request_id", v.RequestID),
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelWarn
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	if cfg.RateLimitRPS > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimitRPS))))
	}

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public catalog reads
	api.GET("/books", h.Books.ListBooks)
	api.GET("/books/overview", h.Books.Overview)
	api.GET("/books/summary", h.Books.Summary)
	api.GET("/books/:id", h.Books.GetBook)
	api.GET("/books/:id/copies", h.Copies.ListByBook)
	api.GET("/bookCopies", h.Copies.ListAll)

	// Secured routes (require JWT authentication)
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(cfg.JWTSecret),
		TokenLookup:   "header:" + echo.HeaderAuthorization + ":Bearer ",
		ContextKey:    auth.ContextKey,
		NewClaimsFunc: auth.NewClaims,
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Message: "invalid or missing token",
				Error:   "invalid or missing token",
				Code:    "UNAUTHORIZED",
			})
		},
	}))

	// Catalog writes
	secured.POST("/books", h.Books.CreateBook)
	secured.PUT("/books/:id", h.Books.UpdateBook)
	secured.PATCH("/books/:id", h.Books.PatchBook)
	secured.DELETE("/books/:id", h.Books.DeleteBook)
	secured.DELETE("/bookCopies/:id", h.Copies.Retire)

	// Circulation
	secured.POST("/issue", h.Circulation.Issue)
	secured.PATCH("/issue/:id/return", h.Circulation.Return)
	secured.PATCH("/issue/:id/extend", h.Circulation.Extend)
	secured.GET("/issue/overdue", h.Circulation.Overdue)
	secured.GET("/issue/due-today", h.Circulation.DueToday)
	secured.GET("/issue/mybooks", h.Circulation.MyBooks)
	secured.GET("/issue/issued", h.Circulation.ListAll)
	secured.GET("/issue/:id/history", h.Circulation.History)
	secured.GET("/borrows", h.Circulation.ListAll)

	// Directory
	secured.POST("/users", h.Users.CreateUser)
	secured.GET("/users", h.Users.ListUsers)
	secured.GET("/users/:id", h.Users.GetUser)
	secured.PUT("/users/:id", h.Users.UpdateUser)
	secured.PATCH("/users/:id", h.Users.PatchUser)
	secured.DELETE("/users/:id", h.Users.DeleteUser)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the request validator used by every handler.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONSerializer implements echo.JSONSerializer with json-iterator.
type JSONSerializer struct{}

// Serialize encodes i into the response.
func (JSONSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

// Deserialize decodes the request body into i.
func (JSONSerializer) Deserialize(c echo.Context, i interface{}) error {
	err := json.NewDecoder(c.Request().Body).Decode(i)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return nil
}
