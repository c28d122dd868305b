package ffmpeg

// Profile is one fixed (codec, bitrate, resolution) encode configuration.
type Profile struct {
	Label       string
	Width       int
	BitrateKbps int
}

// Profiles lists the rendition tiers in the order they are encoded.
var Profiles = []Profile{
	{Label: "high", Width: 1280, BitrateKbps: 1500},
	{Label: "medium", Width: 854, BitrateKbps: 800},
	{Label: "low", Width: 640, BitrateKbps: 400},
}

// ProfileFor returns the profile with the given label.
func ProfileFor(label string) (Profile, bool) {
	for _, profile := range Profiles {
		if profile.Label == label {
			return profile, true
		}
	}
	return Profile{}, false
}
