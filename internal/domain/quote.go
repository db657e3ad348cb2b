package domain

import "time"

// Quote es el precio actual de un símbolo según el proveedor de datos.
type Quote struct {
	Symbol    string
	Price     float64
	Change24h float64
	Volume    float64
	Timestamp time.Time
	Source    string
	Stale     bool // true si viene de caché degradada tras fallo del upstream
}
