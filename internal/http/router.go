package http

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/brahmamatch/server/internal/auth"
	"github.com/brahmamatch/server/internal/http/handlers"
	"github.com/brahmamatch/server/internal/middleware"
	"github.com/brahmamatch/server/internal/repo"
)

// NewRouter wires up all routes. Endpoints under /user and the image uploads
// are owner-only; identity/profile listing and lookup are admin-style and
// unauthenticated, matching the original surface.
func NewRouter(
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	profileHandler *handlers.ProfileHandler,
	tokens *auth.TokenService,
	identities repo.IdentityRepo,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", handlers.Health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/send-otp", authHandler.HandleSendOTP)
		r.Post("/verify-otp", authHandler.HandleVerifyOTP)
	})

	r.Get("/users", userHandler.HandleList)
	r.Get("/users/{user_id}", userHandler.HandleGetByID)
	r.Delete("/users/{user_id}", userHandler.HandleDeleteByID)

	r.Get("/profiles", profileHandler.HandleList)
	r.Get("/profiles/{user_id}", profileHandler.HandleGetByUserID)
	r.Delete("/profiles/{user_id}", profileHandler.HandleDeleteByUserID)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tokens, identities))
		r.Get("/user/me", userHandler.HandleMe)
		r.Post("/user/createProfile", profileHandler.HandleUpsertMine)
		r.Get("/user/myProfile", profileHandler.HandleGetMine)
		r.Post("/user/profile/upload-profile-image", profileHandler.HandleUploadProfileImage)
		r.Post("/user/profile/upload-gallery-image", profileHandler.HandleUploadGalleryImage)
	})

	return r
}
