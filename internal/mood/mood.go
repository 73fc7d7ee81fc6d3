// Package mood derives the dashboard's headline emoji and greeting from the
// room temperature and the time of day.
package mood

// Mood is the emoji and greeting shown above the sensor cards.
type Mood struct {
	Emoji    string `json:"emoji"`
	Greeting string `json:"greeting"`
}

// Initial is shown until the first room temperature arrives.
var Initial = Mood{Emoji: "🌡️", Greeting: "Welcome to your Smart Home!"}

// Bucket names the temperature range a reading falls into.
type Bucket int

const (
	Freezing Bucket = iota
	Chilly
	Mild
	Beautiful
	Hot
)

var buckets = [...]struct {
	emoji   string
	message string
}{
	Freezing:  {"❄️", "It's freezing outside! Stay warm!"},
	Chilly:    {"🥶", "It's quite chilly today!"},
	Mild:      {"😊", "The weather is mild and pleasant!"},
	Beautiful: {"☀️", "It's a beautiful day!"},
	Hot:       {"🔥", "It's hot outside! Stay cool!"},
}

// BucketFor returns the temperature bucket for temp in °C.
func BucketFor(temp float64) Bucket {
	switch {
	case temp < 0:
		return Freezing
	case temp < 10:
		return Chilly
	case temp < 20:
		return Mild
	case temp < 30:
		return Beautiful
	default:
		return Hot
	}
}

// Salutation returns the greeting prefix for an hour of day (0-23).
func Salutation(hour int) string {
	switch {
	case hour < 12:
		return "Good morning"
	case hour < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

// Derive combines the hour's salutation with the temperature bucket.
func Derive(temp float64, hour int) Mood {
	b := buckets[BucketFor(temp)]
	return Mood{
		Emoji:    b.emoji,
		Greeting: Salutation(hour) + "! " + b.message,
	}
}
