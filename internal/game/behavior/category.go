package behavior

var categoryBehaviors = map[string]string{
	"default":     "melee_attacker",
	"ranged":      "ranged_attacker",
	"spellcaster": "spellcaster",
	"summoner":    "summoner",
	"hydra":       "hydra",
	"stationary":  "stationary_caster",
}

// FallbackBehaviorID is used for categories missing from the table.
const FallbackBehaviorID = "melee_attacker"

// CategoryBehaviorID maps a legacy actor category to its behavior id.
func CategoryBehaviorID(category string) string {
	if id, ok := categoryBehaviors[category]; ok {
		return id
	}
	return FallbackBehaviorID
}
