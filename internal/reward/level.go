package reward

// Level is a user's tier derived from their cumulative point total.
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
	LevelExpert       Level = "Expert"
)

// LevelFor maps a cumulative point total to its tier. The thresholds are
// fixed: below 100 Beginner, below 500 Intermediate, below 1000 Advanced,
// Expert from 1000 up.
func LevelFor(points int) Level {
	switch {
	case points < 100:
		return LevelBeginner
	case points < 500:
		return LevelIntermediate
	case points < 1000:
		return LevelAdvanced
	default:
		return LevelExpert
	}
}
