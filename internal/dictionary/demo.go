package dictionary

import _ "embed"

//go:embed demo_reports.txt
var demoReports string

// DemoDocument returns the combined text of the four demonstration reports
// the default dictionaries were calibrated against.
func DemoDocument() string {
	return demoReports
}
