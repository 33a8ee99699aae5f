package gurunavi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"stopover-food/internal/venue"
)

// flexString accepts a JSON string or number. Objects, arrays and null,
// which the API uses for absent values, decode to "".
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*f = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case '{', '[', 'n':
		*f = ""
	default:
		*f = flexString(string(b))
	}
	return nil
}

func (f flexString) float() (float64, bool) {
	s := strings.TrimSpace(string(f))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

type searchResponse struct {
	Rest []restData `json:"rest"`
}

type restData struct {
	Name      flexString `json:"name"`
	URL       flexString `json:"url"`
	Address   flexString `json:"address"`
	Tel       flexString `json:"tel"`
	OpenTime  flexString `json:"opentime"`
	Holiday   flexString `json:"holiday"`
	Budget    flexString `json:"budget"`
	Category  flexString `json:"category"`
	Latitude  flexString `json:"latitude"`
	Longitude flexString `json:"longitude"`
	Access    struct {
		Station flexString `json:"station"`
		Walk    flexString `json:"walk"`
	} `json:"access"`
	PR struct {
		Short flexString `json:"pr_short"`
	} `json:"pr"`
	ImageURL struct {
		Shop1 flexString `json:"shop_image1"`
	} `json:"image_url"`
}

func (r restData) toRaw() venue.Raw {
	raw := venue.Raw{
		Name:          string(r.Name),
		URL:           string(r.URL),
		Address:       string(r.Address),
		Tel:           string(r.Tel),
		OpenTime:      string(r.OpenTime),
		Holiday:       string(r.Holiday),
		Budget:        string(r.Budget),
		AccessStation: string(r.Access.Station),
		AccessWalk:    string(r.Access.Walk),
		PRShort:       string(r.PR.Short),
		ImageURL:      string(r.ImageURL.Shop1),
		Category:      string(r.Category),
		Source:        venue.DefaultSource,
	}
	lat, okLat := r.Latitude.float()
	lon, okLon := r.Longitude.float()
	if okLat && okLon {
		raw.Latitude, raw.Longitude, raw.HasLocation = lat, lon, true
	}
	return raw
}
