package handlers

import (
	"github.com/go-chi/chi/v5"
)

// API groups the JSON and image endpoints under /api.
type API struct {
	Promotions *PromotionHandler
	Analytics  *AnalyticsHandler
	Images     *ImageHandler
	Secret     string
}

func (a *API) RegisterRoutes(r chi.Router) {
	auth := AuthMiddleware(a.Secret)

	r.Route("/api", func(r chi.Router) {
		r.Route("/promotions", func(r chi.Router) {
			r.Get("/", a.Promotions.List)
			r.Get("/{shortId}", a.Promotions.Get)
			r.Get("/{shortId}/qr", a.Promotions.QRCode)
			r.With(auth).Post("/", a.Promotions.Create)
			r.With(auth).Delete("/", a.Promotions.Delete)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Post("/track", a.Analytics.Track)
			r.With(auth).Get("/data", a.Analytics.Data)
			r.With(auth).Delete("/delete", a.Analytics.Delete)
		})

		r.Get("/image-proxy", a.Images.Proxy)
		r.Get("/cdn-image", a.Images.CDNImage)
		r.Get("/whatsapp-image", a.Images.WhatsAppImage)
		r.Get("/whatsapp-image/{shortId}", a.Images.WhatsAppImageFor)
		r.Get("/og-image/{shortId}", a.Images.OGImage)
		r.Get("/force-refresh", a.Images.ForceRefresh)
	})
}
