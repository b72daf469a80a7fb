package fm

// ----- Backend ----- //

// Param is a schedulable control input of a node.
// Calls for the same Param are applied in call order.
type Param interface {
	Value() float64
	SetValue(value float64)
	LinearRampToValueAtTime(value float64, endTime float64)
	ExponentialRampToValueAtTime(value float64, endTime float64)
	// CancelAndHoldAtTime drops the events after cancelTime and holds the
	// value the param has at that time.
	CancelAndHoldAtTime(cancelTime float64)
}

// Node is anything that produces a signal.
type Node interface {
	// Connect feeds the output into the audio input of dst.
	Connect(dst Node)
	// ConnectParam adds the output to the value of p.
	ConnectParam(p Param)
}

// Oscillator is a periodic signal generator.
type Oscillator interface {
	Node
	Frequency() Param
	Start()
}

// Gain scales its input.
type Gain interface {
	Node
	Gain() Param
}

// Delay is a delay line.
type Delay interface {
	Node
	DelayTime() Param
}

// Backend is the signal-processing engine the synth drives.
type Backend interface {
	CreateOscillator() Oscillator
	CreateGain() Gain
	CreateDelay(maxDelayTime float64) Delay
	Destination() Node
	CurrentTime() float64
}
