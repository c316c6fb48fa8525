package engine

// GamePhase represents the current phase of the turn state machine.
type GamePhase int

const (
	PhaseLobby           GamePhase = iota // waiting for enough ready players
	PhaseIdle                             // board generated, no turn started yet
	PhaseRollAndMove                      // current player rolling and moving
	PhaseLandResolution                   // rent and pass-start settling
	PhaseActionWindow                     // waiting for the current player's requests
	PhaseRewardBroadcast                  // previous actor being rewarded or bankrupted
	PhaseGameOver                         // game finished
	PhaseResetting                        // waiting for every Ready ack before a new board
)

var phaseNames = map[GamePhase]string{
	PhaseLobby:           "Lobby",
	PhaseIdle:            "Idle",
	PhaseRollAndMove:     "RollAndMove",
	PhaseLandResolution:  "LandResolution",
	PhaseActionWindow:    "ActionWindow",
	PhaseRewardBroadcast: "RewardBroadcast",
	PhaseGameOver:        "GameOver",
	PhaseResetting:       "Resetting",
}

func (p GamePhase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "Unknown"
}

// MarshalText encodes the phase by name.
func (p GamePhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
