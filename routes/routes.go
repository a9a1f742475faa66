package routes

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/clanwars/battles/handlers"
)

func SetupRoutes(router *chi.Mux, scheduleHandler *handlers.ScheduleHandler, wsHandler *handlers.WebSocketHandler) {
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		// Расписание публичное и встраивается на клановые сайты.
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/update/{clanID:[0-9]+}-{clanTag}", scheduleHandler.GetByIDAndTag)
	router.Get("/update/{clanTag}", scheduleHandler.GetByTag)
	router.Get("/ws/clans/{clanTag}", wsHandler.ServeWs)
}
