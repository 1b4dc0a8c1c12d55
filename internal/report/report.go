package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/joanne1229/DressToWeather/internal/outfit"
	"github.com/joanne1229/DressToWeather/internal/weather"
)

const (
	headerFmt = "Weather report for %s:\n"
	bodyFmt   = "📍 Location: %s\n" +
		"🌡️ Temperature: %.1f°F\n" +
		"🌪️ Feels like: %.1f°F\n" +
		"💨 Wind: %s (%.1f mph)\n" +
		"🌤️ Condition: %s\n" +
		"👖 Suggested outfit:\n" +
		"      👗 Feminine style: %s\n" +
		"      👔 Masculine style: %s"
	precipFmt    = "☔ Heads up: %s expected around %s"
	sunscreenFmt = "🧴 Sunscreen: %s"
)

// Format renders a weather report. Times are shown in loc.
func Format(mention string, snap weather.Snapshot, advice outfit.Advice, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	fmt.Fprintf(&b, headerFmt, mention)
	fmt.Fprintf(&b, bodyFmt,
		snap.Location,
		snap.Temperature,
		snap.FeelsLike,
		outfit.DescribeWind(snap.WindSpeed), snap.WindSpeed,
		snap.Condition,
		advice.Feminine,
		advice.Masculine,
	)
	if advice.Weather != "" {
		b.WriteString("\n      ")
		b.WriteString(advice.Weather)
	}
	if p := snap.Precipitation; p != nil {
		b.WriteString("\n")
		fmt.Fprintf(&b, precipFmt, p.Description, p.At.In(loc).Format("15:04"))
		if p.Probability > 0 {
			fmt.Fprintf(&b, " (%d%% chance)", int(math.Round(p.Probability*100)))
		}
	}
	if advice.Sunscreen != "" {
		b.WriteString("\n")
		fmt.Fprintf(&b, sunscreenFmt, advice.Sunscreen)
	}
	return b.String()
}

// Build runs the rules engine on snap and formats the result.
func Build(mention string, snap weather.Snapshot, loc *time.Location) string {
	return Format(mention, snap, outfit.Suggest(snap.Temperature, snap.Condition, snap.WindSpeed), loc)
}
