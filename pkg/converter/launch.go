// pkg/converter/launch.go
package converter

import (
	"regexp"
	"strconv"
	"time"

	"github.com/danexplore/JiraSQL/pkg/model"
)

// Version names carry the launch as MMYYYY, e.g. "062025-CETEC"
var launchPattern = regexp.MustCompile(`(\d{6})-[A-Z]+`)

// Launch is the planned launch parsed from fix version names
type Launch struct {
	Code   string // MMYYYY
	Year   string
	Month  string
	Status model.LaunchStatus
}

// ParseLaunch finds the first launch code in versions and classifies it
// against now. Without a code the launch has no forecast.
func ParseLaunch(versions string, now time.Time) Launch {
	match := launchPattern.FindStringSubmatch(versions)
	if match == nil {
		return Launch{Status: model.LaunchNoForecast}
	}

	code := match[1]
	launch := Launch{
		Code:  code,
		Year:  code[2:],
		Month: code[:2],
	}

	year, _ := strconv.Atoi(launch.Year)
	month, _ := strconv.Atoi(launch.Month)
	launch.Status = launchStatus(year, month, now)
	return launch
}

func launchStatus(year, month int, now time.Time) model.LaunchStatus {
	currentYear, currentMonth := now.Year(), int(now.Month())
	if year < currentYear || (year == currentYear && month <= currentMonth) {
		return model.LaunchLaunched
	}
	return model.LaunchUpcoming
}
