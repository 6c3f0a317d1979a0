package server

import (
	"context"
	"log"
	"net/http"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"greenalgeria-api/internal/config"
	"greenalgeria-api/internal/geo"
	"greenalgeria-api/internal/handlers"
	"greenalgeria-api/internal/middleware"
	"greenalgeria-api/internal/router"
	"greenalgeria-api/internal/services"
)

// Services holds all initialized services for the application
type Services struct {
	Store         *services.ContributionStore
	Storage       *services.StorageService
	Samples       *services.SampleCache
	Geocoding     *services.GeocodingService
	Contributions *services.ContributionService
	Boundary      *geo.Boundary
}

// InitServices initializes all application services based on configuration.
// The store connection is established here, once, before the server accepts
// any request; an error here is fatal to the process.
func InitServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	// Configure Firebase credentials
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsJSON != "" {
		// Use JSON credentials from environment variable
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.FirebaseCredentialsJSON)))
	} else {
		// Use credentials file (for local development)
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsPath))
	}

	// Initialize Firebase Storage client
	storageClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	// Initialize Firestore client
	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProjectID, opts...)
	if err != nil {
		return nil, err
	}

	// Region boundary: configured polygon file, falling back to the
	// embedded region (which itself falls back to the approximate bounds).
	boundary := geo.Default()
	if cfg.BoundaryPath != "" {
		loaded, err := geo.Load(cfg.BoundaryPath)
		if err != nil {
			log.Printf("[Server] Boundary file %s failed to load, using default region: %v", cfg.BoundaryPath, err)
		} else {
			boundary = loaded
		}
	}

	// Initialize core services
	store := services.NewContributionStore(firestoreClient, cfg.FirestoreCollection)
	storageService := services.NewStorageService(storageClient, cfg.FirebaseBucketName)
	samples := services.NewSampleCache(cfg.SampleCacheTTL, cfg.SampleCacheCleanup)
	geocoding := services.NewGeocodingService()
	contributions := services.NewContributionService(store, geocoding, samples, boundary)

	return &Services{
		Store:         store,
		Storage:       storageService,
		Samples:       samples,
		Geocoding:     geocoding,
		Contributions: contributions,
		Boundary:      boundary,
	}, nil
}

// CreateHandler creates an HTTP handler with all middleware applied
func CreateHandler(svcs *Services, cfg *config.Config) http.Handler {
	// Initialize handlers
	h := handlers.New(svcs.Contributions, svcs.Storage, cfg.MaxUploadBytes)

	// Setup router with middleware
	mux := router.Setup(h)

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	// Apply global middleware (innermost first)
	wrappedHandler := middleware.RequestID(mux)
	wrappedHandler = middleware.APIKeyAuth(cfg.APIKeys)(wrappedHandler)
	wrappedHandler = limiter.Limit(wrappedHandler)
	wrappedHandler = middleware.Logger(wrappedHandler)
	wrappedHandler = middleware.CORS(wrappedHandler, cfg.AllowedOrigins)

	return wrappedHandler
}
