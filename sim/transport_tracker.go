package sim

import "fmt"

// TransportationTracker accumulates inbound tonne-km for one facility.
// Totals never decrease. Each timestep keeps only the route id of its last
// shipment; coinciding shipments on different routes lose all but one id.
type TransportationTracker struct {
	FacilityID int

	tonneKm  []float64
	routeIDs []string
}

// NewTransportationTracker creates a tracker covering timesteps steps.
func NewTransportationTracker(facilityID, timesteps int) *TransportationTracker {
	return &TransportationTracker{
		FacilityID: facilityID,
		tonneKm:    make([]float64, timesteps),
		routeIDs:   make([]string, timesteps),
	}
}

// IncrementInboundTonneKm adds amount at timestep and records routeID as
// that timestep's route.
func (tt *TransportationTracker) IncrementInboundTonneKm(amount float64, routeID string, timestep int64) error {
	if amount < 0 {
		return fmt.Errorf("facility %d: negative tonne-km %v", tt.FacilityID, amount)
	}
	if timestep < 0 || timestep >= int64(len(tt.tonneKm)) {
		return fmt.Errorf("facility %d: timestep %d outside [0, %d)", tt.FacilityID, timestep, len(tt.tonneKm))
	}
	tt.tonneKm[timestep] += amount
	tt.routeIDs[timestep] = routeID
	return nil
}

// InboundTonneKm returns a copy of the per-timestep history.
func (tt *TransportationTracker) InboundTonneKm() []float64 {
	return append([]float64(nil), tt.tonneKm...)
}

// RouteID returns the last route recorded at timestep.
func (tt *TransportationTracker) RouteID(timestep int64) string {
	if timestep < 0 || timestep >= int64(len(tt.routeIDs)) {
		return ""
	}
	return tt.routeIDs[timestep]
}

// Window sums tonne-km over [from, to).
func (tt *TransportationTracker) Window(from, to int64) float64 {
	total := 0.0
	for t := max(from, 0); t < to && t < int64(len(tt.tonneKm)); t++ {
		total += tt.tonneKm[t]
	}
	return total
}
