package ports

import "github.com/alejandrodnm/swarmbot/internal/domain"

// GrowthLog es el sink append-only de eventos de crecimiento de la red.
// El core escribe a través de esta interfaz; nunca toca el filesystem.
type GrowthLog interface {
	// Append añade un evento al log. Las entradas nunca se reescriben.
	Append(event domain.GrowthEvent) error
}

// ReserveLog es el sink append-only de movimientos del fondo de reserva.
type ReserveLog interface {
	Append(event domain.ReserveEvent) error
}
