package costmethods

import "math"

func zeroMethod(_ *CostMethods, _ Inputs) (float64, error) {
	return 0, nil
}

// landfilling is the tipping fee, growing about 3.5% per year.
func landfilling(cm *CostMethods, _ Inputs) (float64, error) {
	return cm.linearInYear("landfilling", func(year float64) float64 {
		return 8.0e-30 * math.Exp(0.0352*year)
	})
}

// rotorTeardown is a third of the rotor teardown cost per blade, spread over
// the component mass.
func rotorTeardown(cm *CostMethods, _ Inputs) (float64, error) {
	perUnit, err := cm.linearInYear("rotor_teardown", func(year float64) float64 {
		return 42.6066109*year*year - 170135.7518957*year + 169851728.663209
	})
	if err != nil {
		return 0, err
	}
	mass := cm.pathDict.ComponentMass
	if mass <= 0 {
		return 0, nil
	}
	return perUnit / mass, nil
}

// segmenting cuts blades into 30 m sections on site.
func segmenting(cm *CostMethods, _ Inputs) (float64, error) {
	return cm.linearInYear("segmenting", func(float64) float64 { return 27.56 })
}

func coarseGrinding(method string) Method {
	return func(cm *CostMethods, _ Inputs) (float64, error) {
		c, _, err := cm.learningCost(method, LearningCoarseGrinding)
		return c, err
	}
}

// fineGrinding is the learned process cost plus landfilling of the lost
// fraction, less revenue on the retained fraction.
func fineGrinding(cm *CostMethods, _ Inputs) (float64, error) {
	c, lc, err := cm.learningCost("fine_grinding", LearningFineGrinding)
	if err != nil {
		return 0, err
	}
	loss := cm.lossFraction()
	revenue, err := cm.Param("fine_grinding", "revenue", lc.Revenue)
	if err != nil {
		return 0, err
	}
	landfill := loss * 3.0e-29 * math.Exp(0.0344*cm.pathDict.Year)
	return c + landfill - (1-loss)*revenue, nil
}

// coprocessing is revenue from selling ground blade to cement kilns.
func coprocessing(cm *CostMethods, _ Inputs) (float64, error) {
	return cm.linearInYear("coprocessing", func(float64) float64 { return -10.37 })
}

func bandedTransport(method string) Method {
	return func(cm *CostMethods, in Inputs) (float64, error) {
		mass := cm.pathDict.ComponentMass
		if in.Vkmt == 0 || mass <= 0 {
			return 0, nil
		}
		return cm.yearBandCost(method) * in.Vkmt / mass, nil
	}
}

func shredTransport(cm *CostMethods, in Inputs) (float64, error) {
	rate, err := cm.Param("shred_transpo", "cost_per_km", defaultTransportCostPerKm)
	if err != nil {
		return 0, err
	}
	return rate * in.Vkmt, nil
}

func finegrindShredTransport(cm *CostMethods, in Inputs) (float64, error) {
	rate, err := cm.Param("finegrind_shred_transpo", "cost_per_km", defaultTransportCostPerKm)
	if err != nil {
		return 0, err
	}
	return rate * (1 - cm.lossFraction()) * in.Vkmt, nil
}

func finegrindLossTransport(cm *CostMethods, in Inputs) (float64, error) {
	rate, err := cm.Param("finegrind_loss_transpo", "cost_per_km", defaultTransportCostPerKm)
	if err != nil {
		return 0, err
	}
	return rate * cm.lossFraction() * in.Vkmt, nil
}

// manufacturing is the baseline thermoset blade cost, 11.44 USD/kg.
func manufacturing(cm *CostMethods, _ Inputs) (float64, error) {
	return cm.linearInYear("manufacturing", func(float64) float64 { return 11440.0 })
}
