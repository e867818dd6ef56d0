package repository

// Repos agrupa los repositorios atados a una misma unidad de trabajo (transacción).
type Repos struct {
	Stocks       StockRepository
	Movements    StockMovementRepository
	Reservations ReservationRepository
	Orders       OrderRepository
	Sequences    InvoiceSequenceRepository
	Transfers    TransferRepository
}
