package render

import "html/template"

var cardTmpl = template.Must(template.New("card").Parse(
	`<h4>{{.Name}}</h4>{{range .Card}}<p><b>{{.Label}}:</b> {{.Value}}</p>{{end}}`))

var popupTmpl = template.Must(template.New("popup").Parse(`<div style="font-family: Arial, sans-serif; font-size: 14px;">
<strong>{{.Name}}</strong><br>
Address: {{.Address}}<br>
Phone: {{.Phone}}<br>
Rating: {{.Rating}}<br>
Price Level: {{.Price}}<br>
Editorial Summary: {{.Summary}}<br>
{{if .Website}}<a href="{{.Website}}" target="_blank">Website</a><br>{{end}}
{{if .URL}}<a href="{{.URL}}" target="_blank">Maps URL</a><br>{{end}}
</div>`))

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Restaurant map</title>
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map').setView([{{.Center.Lat}}, {{.Center.Lng}}], {{.Zoom}});
L.tileLayer('https://{s}.basemap.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png', {
  attribution: '&copy; OpenStreetMap contributors &copy; CARTO',
  subdomains: 'abcd',
  maxZoom: 20
}).addTo(map);

var logoURL = {{.LogoURL}};
var logo = logoURL ? L.icon({iconUrl: logoURL, iconSize: [20, 20]}) : null;
var references = {{.References}} || [];
references.forEach(function (r) {
  var m = logo ? L.marker([r.lat, r.lng], {icon: logo}) : L.marker([r.lat, r.lng]);
  m.bindPopup(r.popup, {maxWidth: 320}).addTo(map);
});

var places = {{.Places}} || [];
places.forEach(function (p) {
  L.circleMarker([p.lat, p.lng], {
    radius: 3.5,
    color: p.color,
    fill: true,
    fillColor: p.color,
    fillOpacity: 0.5
  }).bindPopup(p.popup, {maxWidth: 300}).addTo(map);
});
</script>
</body>
</html>
`))
