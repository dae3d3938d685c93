package scraper

// Sample is a canned listing served in offline mode.
type Sample struct {
	Title      string
	DistanceKm float64
	Path       string // appended to the site's base URL
}

var routeYouSamples = []Sample{
	{"MDY-01: DEMO - Malmedy City Walk (SAMPLE ROUTE)", 5.2, "/en-be/route/view/malmedy-city-walk"},
	{"MDY-02: DEMO - High Fens Trail (SAMPLE ROUTE)", 12.5, "/en-be/route/view/high-fens-trail"},
	{"MDY-03: DEMO - Warche Valley Loop (SAMPLE ROUTE)", 8.3, "/en-be/route/view/warche-valley-loop"},
}

var wikilocSamples = []Sample{
	{"MDY-04: DEMO - Bayehon Waterfall Walk (SAMPLE ROUTE)", 6.8, "/wikiloc/view.do?id=bayehon-waterfall"},
	{"MDY-05: DEMO - Signal de Botrange (SAMPLE ROUTE)", 9.2, "/wikiloc/view.do?id=signal-botrange"},
	{"MDY-06: DEMO - Reinhardstein Castle Route (SAMPLE ROUTE)", 7.5, "/wikiloc/view.do?id=reinhardstein-castle"},
}

var malmedySamples = []Sample{
	{"MDY-07: DEMO - Malmedy Heritage Circuit (SAMPLE ROUTE)", 4.5, "/en/type-a-pied/signposted-walks/heritage-circuit"},
	{"MDY-08: DEMO - Robertville Lake Trail (SAMPLE ROUTE)", 11.0, "/en/type-a-pied/signposted-walks/robertville-lake"},
	{"MDY-09: DEMO - Beverce Valley Walk (SAMPLE ROUTE)", 7.2, "/en/type-a-pied/signposted-walks/beverce-valley"},
}

// malmedyLoopGPX takes the route name as its only verb.
const malmedyLoopGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="gpx2maps" xmlns="http://www.topografix.com/GPX/1/1">
  <metadata>
    <name>%[1]s</name>
    <desc>DEMO SAMPLE ROUTE - Walking route near Malmedy, Belgium - FOR DEMONSTRATION ONLY</desc>
  </metadata>
  <trk>
    <name>%[1]s</name>
    <trkseg>
      <trkpt lat="50.4233" lon="6.0294"><ele>340</ele></trkpt>
      <trkpt lat="50.4250" lon="6.0310"><ele>345</ele></trkpt>
      <trkpt lat="50.4270" lon="6.0330"><ele>350</ele></trkpt>
      <trkpt lat="50.4285" lon="6.0345"><ele>355</ele></trkpt>
      <trkpt lat="50.4290" lon="6.0320"><ele>352</ele></trkpt>
      <trkpt lat="50.4275" lon="6.0300"><ele>348</ele></trkpt>
      <trkpt lat="50.4250" lon="6.0285"><ele>342</ele></trkpt>
      <trkpt lat="50.4233" lon="6.0294"><ele>340</ele></trkpt>
    </trkseg>
  </trk>
</gpx>
`

const botrangeLoopGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="gpx2maps" xmlns="http://www.topografix.com/GPX/1/1">
  <metadata>
    <name>%[1]s</name>
    <desc>DEMO SAMPLE ROUTE - Walking route near Malmedy, Belgium - FOR DEMONSTRATION ONLY</desc>
  </metadata>
  <trk>
    <name>%[1]s</name>
    <trkseg>
      <trkpt lat="50.4300" lon="6.0400"><ele>360</ele></trkpt>
      <trkpt lat="50.4320" lon="6.0420"><ele>365</ele></trkpt>
      <trkpt lat="50.4340" lon="6.0440"><ele>370</ele></trkpt>
      <trkpt lat="50.4360" lon="6.0460"><ele>375</ele></trkpt>
      <trkpt lat="50.4380" lon="6.0440"><ele>372</ele></trkpt>
      <trkpt lat="50.4360" lon="6.0420"><ele>368</ele></trkpt>
      <trkpt lat="50.4340" lon="6.0400"><ele>363</ele></trkpt>
      <trkpt lat="50.4320" lon="6.0380"><ele>358</ele></trkpt>
      <trkpt lat="50.4300" lon="6.0400"><ele>360</ele></trkpt>
    </trkseg>
  </trk>
</gpx>
`
