package sim

// Probabilities is the per-tick roll table. All values are in [0,1] and are
// explicit configuration so tests can pin exact outcomes.
type Probabilities struct {
	// NVRFailure is the chance that one whole recorder drops this tick.
	NVRFailure float64 `yaml:"nvr_failure"`
	// CameraFailure is each online camera's chance of going offline.
	CameraFailure float64 `yaml:"camera_failure"`
	// CameraRepair is each offline camera's chance of coming back.
	CameraRepair float64 `yaml:"camera_repair"`
	// NVRRecovery gates repairs of cameras under an offline recorder. Rolled
	// once per tick per NVR and applied uniformly to all its cameras.
	NVRRecovery float64 `yaml:"nvr_recovery"`
}

// DefaultProbabilities mirrors the reference behavior: 0.2% NVR failure,
// 0.5% camera failure, 20% repair, 50% NVR recovery.
func DefaultProbabilities() Probabilities {
	return Probabilities{
		NVRFailure:    0.002,
		CameraFailure: 0.005,
		CameraRepair:  0.20,
		NVRRecovery:   0.50,
	}
}

// Rand is the source of randomness for the engine. *math/rand.Rand satisfies
// it; tests inject scripted sequences.
type Rand interface {
	Float64() float64
	Intn(n int) int
}
