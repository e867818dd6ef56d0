package inventory

import "github.com/shopspring/decimal"

// CostCalculator implementa la lógica de costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
func CostCalculator(stockActual, costoActual, cantEntrada, costoEntrada decimal.Decimal) decimal.Decimal {
	sum := stockActual.Add(cantEntrada)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := stockActual.Mul(costoActual).Add(cantEntrada.Mul(costoEntrada))
	return num.Div(sum)
}

// WeightedAverage versión entera para cantidades de unidades físicas.
// Si no había existencias el nuevo costo es el de la entrada.
func WeightedAverage(oldQty int64, oldAvg decimal.Decimal, inQty int64, inCost decimal.Decimal) decimal.Decimal {
	if oldQty <= 0 {
		if inQty <= 0 {
			return oldAvg
		}
		return inCost
	}
	return CostCalculator(decimal.NewFromInt(oldQty), oldAvg, decimal.NewFromInt(inQty), inCost)
}
