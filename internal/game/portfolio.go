package game

// PortfolioValue is the catalog cost of every owned business plus the
// notional value of legacy assets.
func (e *Engine) PortfolioValue(p Player) int64 {
	var value int64
	for _, id := range p.OwnedBusinessIDs() {
		if def, ok := e.catalog.Find(id); ok {
			value += def.Cost
		}
	}
	value += p.Legacy.LemonadeStands * LemonadeStandValue
	value += p.Legacy.Cafes * CafeValue
	value += p.Legacy.Factories * FactoryValue
	return value
}

// LeaderboardScore ranks players by holdings plus liquid wealth.
func (e *Engine) LeaderboardScore(p Player) int64 {
	return e.PortfolioValue(p) + p.Wealth
}

func (e *Engine) countCategory(p Player, cat Category) int {
	return e.catalog.CountCategory(p.OwnedBusinessIDs(), cat)
}
