package persona

// FallbackLine returns the deterministic canned reply delivered when
// generation for a role fails, times out, or returns unusable output.
// Fallbacks are delivered like any other reply, only tagged differently.
func FallbackLine(role Role) string {
	switch role {
	case RoleNarrator:
		return "The night deepens, and for a moment no one speaks."
	case RoleMatron:
		return "The matron watches the room in silence, missing nothing."
	case RoleMuse:
		return "Serra lowers her gaze and lets the pause stretch just a little too long."
	case RoleEnvoy:
		return "The envoy waits at the edge of the lamplight, saying nothing."
	case RoleMerchant:
		return "The merchant weighs something unseen in his palm and says nothing yet."
	default:
		return "A hush settles over the scene."
	}
}
