package domain

// RawDescriptors are the scalar inputs the vector composer consumes.
// They come from the raw analyzer collaborator (or directly from an
// import payload); this core never extracts them from audio itself.
//
// Zero values mean "not supplied": the composer falls back to the
// neutral defaults documented on Compose.
type RawDescriptors struct {
	BPM              float64
	KeyName          string // conventional name or Camelot code
	Energy           float64
	Danceability     float64
	Valence          float64
	Acousticness     float64
	Instrumentalness float64
	TempoStability   float64
	Mood             string
	Genre            string
}
