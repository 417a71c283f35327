package exposure

// TuningParams holds the real-time adjustable control-loop parameters.
// These can be modified while the loop runs (config hot reload).
type TuningParams struct {
	Target    float64 `json:"target"`    // Setpoint luminance
	BaseGain  float64 `json:"base_gain"` // Error-scaled gain multiplier
	Smoothing float64 `json:"smoothing"` // EMA alpha (0.05=stable, 0.2=fast)
}

// Tuning returns the current tuning parameters.
func (c *Controller) Tuning() TuningParams {
	c.mu.Lock()
	defer c.mu.Unlock()

	return TuningParams{
		Target:    c.cfg.Target,
		BaseGain:  c.cfg.BaseGain,
		Smoothing: c.cfg.Smoothing,
	}
}

// SetTuning updates tuning parameters at runtime.
// Only non-zero values are applied.
func (c *Controller) SetTuning(params TuningParams) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if params.Target > 0 && params.Target < 1 {
		c.cfg.Target = params.Target
	}
	if params.BaseGain > 0 {
		c.cfg.BaseGain = params.BaseGain
	}
	if params.Smoothing > 0 {
		c.cfg.Smoothing = clamp(params.Smoothing, 0.001, 1.0)
	}

	c.logger.Info("exposure tuning updated",
		"target", c.cfg.Target, "base_gain", c.cfg.BaseGain, "smoothing", c.cfg.Smoothing)
}
