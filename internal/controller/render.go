package controller

import (
	"bytes"
	"html/template"

	"github.com/askwhyharsh/nearhelp/internal/location"
)

var stationPanel = template.Must(template.New("station").Parse(`
<h3>Nearest Help Found:</h3>
<p><strong>{{.Name}}</strong></p>
<p>{{.Address}}</p>
<p>Approximately: {{.Distance}} km away</p>
<p><a href="{{.Directions}}" target="_blank" rel="noopener noreferrer" class="sms-btn">Get Directions on Map</a></p>
`))

type panelData struct {
	Name       string
	Address    string
	Distance   string
	Directions string
}

// RenderStation produces the nearest-station panel.
func RenderStation(result location.DistanceResult) (string, error) {
	var buf bytes.Buffer
	err := stationPanel.Execute(&buf, panelData{
		Name:       result.Station.Name,
		Address:    result.Station.Address,
		Distance:   location.FormatKm(result.DistanceKm),
		Directions: location.DirectionsURL(result.Station.Coordinate),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
