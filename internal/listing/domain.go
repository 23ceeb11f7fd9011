// Package listing holds the advert catalog domain: filters, the URL query
// codec and the stores that back the listing and detail pages.
package listing

// Item is a single advert as served by the catalog API.
type Item struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Location       Location   `json:"location"`
	Category       Category   `json:"category"`
	ModelName      string     `json:"modelName"`
	Price          int64      `json:"price"`
	PriceFormatted string     `json:"priceFormatted"`
	Date           string     `json:"date"`
	DateFormatted  string     `json:"dateFormatted"`
	Properties     []Property `json:"properties"`
	UserInfo       UserInfo   `json:"userInfo"`
	Photo          string     `json:"photo"`
	Photos         []string   `json:"photos,omitempty"`
	Text           string     `json:"text,omitempty"`
}

// Location describes where the vehicle is.
type Location struct {
	CityName string `json:"cityName"`
	TownName string `json:"townName"`
}

// Category groups adverts.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Property is a free-form vehicle attribute such as mileage or gear.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// UserInfo identifies the seller.
type UserInfo struct {
	ID             int64  `json:"id"`
	NameSurname    string `json:"nameSurname"`
	Phone          string `json:"phone"`
	PhoneFormatted string `json:"phoneFormatted"`
}

// Property returns the value of the named property, or "".
func (i Item) Property(name string) string {
	for _, p := range i.Properties {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}
