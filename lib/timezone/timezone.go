package timezone

import (
	"time"
	_ "time/tzdata"
)

// Location is the zone the portal writes its timestamps in, they carry no
// offset of their own.
var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		panic(err)
	}
}

func Now() time.Time {
	return time.Now().In(Location)
}

// Parse reads a portal timestamp in Location.
func Parse(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, Location)
}
