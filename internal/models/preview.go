package models

// Preview summarizes one product page for link sharing.
type Preview struct {
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Price       string  `json:"price,omitempty"`
	Currency    string  `json:"currency"`
	ImageURL    string  `json:"image_url,omitempty"`
	Description string  `json:"description,omitempty"`
	Country     Country `json:"country"`
}
