package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/armory-backend/api/controllers"
	"github.com/angelmondragon/armory-backend/api/middleware"
	"github.com/angelmondragon/armory-backend/internal/inventory"
	"github.com/angelmondragon/armory-backend/internal/persons"
	"github.com/angelmondragon/armory-backend/internal/thresholds"
	"github.com/angelmondragon/armory-backend/pkg/config"
	"github.com/angelmondragon/armory-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	metricsHandler http.Handler,
	inventoryService inventory.Service,
	thresholdService thresholds.Service,
	personService persons.Service,
	notificationSender controllers.NotificationSender,
	notificationEnqueuer controllers.NotificationEnqueuer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins, !cfg.App.IsProd()),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.JWT, logg))

		r.Route("/ammo", func(r chi.Router) {
			r.Get("/", controllers.AdminListAmmo(inventoryService, logg))
			r.Post("/", controllers.AdminCreateAmmo(inventoryService, logg))
			r.Post("/adjust", controllers.AdminAdjustAmmo(inventoryService, logg))
			r.Get("/{lotId}", controllers.AdminGetAmmo(inventoryService, logg))
			r.Patch("/{lotId}", controllers.AdminUpdateAmmo(inventoryService, logg))
			r.Delete("/{lotId}", controllers.AdminDeleteAmmo(inventoryService, logg))
		})
		r.Route("/thresholds", func(r chi.Router) {
			r.Get("/", controllers.AdminListThresholds(thresholdService, logg))
			r.Post("/", controllers.AdminCreateThreshold(thresholdService, logg))
			r.Patch("/{ruleId}", controllers.AdminUpdateThreshold(thresholdService, logg))
			r.Delete("/{ruleId}", controllers.AdminDeleteThreshold(thresholdService, logg))
		})
		r.Route("/persons", func(r chi.Router) {
			r.Get("/", controllers.AdminListPersons(personService, logg))
			r.Post("/", controllers.AdminCreatePerson(personService, logg))
			r.Patch("/{personId}", controllers.AdminUpdatePerson(personService, logg))
			r.Delete("/{personId}", controllers.AdminDeletePerson(personService, logg))
		})
		r.Route("/notifications", func(r chi.Router) {
			r.Post("/send", controllers.AdminSendNotification(notificationSender, logg))
			r.Post("/enqueue", controllers.AdminEnqueueNotification(notificationEnqueuer, logg))
		})
	})

	return r
}
