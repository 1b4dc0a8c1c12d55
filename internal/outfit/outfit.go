// Package outfit maps current conditions to clothing, wind and sunscreen advice.
// Temperatures are °F and wind speeds mph.
package outfit

import "strings"

// HighWind is the speed above which wind changes the advice.
const HighWind = 20.0

// Advice is the rule-based suggestion for one report.
type Advice struct {
	Feminine  string
	Masculine string
	Weather   string // rain/snow/wind addition, empty when none applies
	Sunscreen string
}

type band struct {
	min       float64
	feminine  string
	masculine string
}

// bands are ordered by strictly decreasing lower bound; the last one catches everything below.
var bands = []band{
	{90, "Lightweight sundresses, breezy tank tops, loose shorts, hair up in a messy bun or braids for coolness. Consider moisture-wicking fabrics.",
		"Loose cotton shorts, breathable short-sleeve shirts, lightweight chino shorts. Consider moisture-wicking athletic wear."},
	{80, "Flowy midi dresses, cropped tops with high-waisted shorts, light skirts with breathable tops. Consider a light kimono for sun protection.",
		"Bermuda shorts, polo shirts, light chinos with rolled ankles, breathable button-downs with sleeves rolled."},
	{70, "A-line dresses with short sleeves, culottes with blouses, cotton jumpsuits. Add a light cardigan for evening.",
		"Chino shorts or light pants, short-sleeve henley shirts, light cotton button-downs. Add a light pullover for evening."},
	{60, "Midi skirts with light sweaters, shirt dresses with tights, cropped trousers with fitted tops. Layer with a denim jacket or blazer.",
		"Chinos or jeans with long-sleeve tees, casual button-downs, light sweaters. Layer with a light jacket."},
	{50, "Sweater dresses with boots, layered tops with ponte pants, long skirts with turtlenecks. Add a trench coat or light wool coat.",
		"Dark jeans or wool pants, flannel shirts, medium-weight sweaters. Add a quilted jacket or heavy blazer."},
	{40, "Wool dresses with thermal tights, chunky sweaters with lined pants, knee-high boots. Layer with a warm peacoat.",
		"Heavy jeans or wool trousers, thick sweaters, thermal undershirts. Layer with a wool coat."},
	{30, "Insulated leggings under dresses, thermal base layers, chunky knit sweaters, waterproof boots. Add a down coat and warm accessories.",
		"Insulated pants, heavy sweaters with base layers, winter boots. Add a heavy down jacket and warm accessories."},
}

var coldest = band{
	feminine:  "Heavy thermal layers under warm dresses or pants, insulated boots, maximum layering with wool and down materials.",
	masculine: "Maximum layering with thermal base layer, insulated pants, heavy sweater, and serious winter coat.",
}

const (
	StormText = "⛈️ Due to wind and rain: Add a waterproof raincoat, avoid umbrellas. Consider waterproof boots and rain pants."
	RainText  = "🌧️ For rain: Bring an umbrella, consider water-resistant shoes."
	SnowText  = "❄️ For snow: Add waterproof boots, warm socks, and snow-appropriate outerwear."
	WindText  = "💨 Due to high winds: Add wind-resistant layers, secure loose items."
)

// Suggest returns outfit advice for the temperature, condition text and wind speed.
func Suggest(temp float64, condition string, wind float64) Advice {
	b := bandFor(temp)
	return Advice{
		Feminine:  b.feminine,
		Masculine: b.masculine,
		Weather:   weatherAddition(condition, wind),
		Sunscreen: Sunscreen(temp, condition),
	}
}

func bandFor(temp float64) band {
	for _, b := range bands {
		if temp >= b.min {
			return b
		}
	}
	return coldest
}

func weatherAddition(condition string, wind float64) string {
	c := strings.ToLower(condition)
	switch {
	case strings.Contains(c, "rain") && wind > HighWind:
		return StormText
	case strings.Contains(c, "rain"):
		return RainText
	case strings.Contains(c, "snow"):
		return SnowText
	case wind > HighWind:
		return WindText
	}
	return ""
}

// DescribeWind names the wind speed.
func DescribeWind(mph float64) string {
	switch {
	case mph < 5:
		return "Calm"
	case mph < 12:
		return "Light breeze"
	case mph < 20:
		return "Moderate breeze"
	case mph < 30:
		return "Strong breeze"
	default:
		return "Very windy"
	}
}

// Sunscreen advises on sun protection. UV reaches the ground through cloud,
// so only precipitation rules it out.
func Sunscreen(temp float64, condition string) string {
	c := strings.ToLower(condition)
	switch {
	case hasAny(c, "rain", "snow", "thunderstorm", "drizzle"):
		return "Not needed today."
	case hasAny(c, "clear", "sun") && temp >= 80:
		return "Strong sun: use SPF 50 and reapply every two hours."
	case hasAny(c, "clear", "sun"):
		return "Use SPF 30 on exposed skin."
	case hasAny(c, "cloud", "overcast"):
		return "SPF 15 is still a good idea, UV gets through clouds."
	default:
		return "Optional, SPF 15 if you will be outside for long."
	}
}

func hasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
