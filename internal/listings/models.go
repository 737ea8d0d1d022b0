package listings

import "time"

// Listing represents a classified ad owned by exactly one user.
// The owner is fixed at creation and never changes.
type Listing struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateListingRequest is the request body for creating a listing.
// The owner comes from the authenticated identity, never from the body.
type CreateListingRequest struct {
	Title       string   `json:"title" binding:"required,max=255"`
	Description string   `json:"description"`
	Location    string   `json:"location" binding:"required"`
	Price       *float64 `json:"price" binding:"required,gte=0"`
	Category    string   `json:"category" binding:"required"`
	Images      []string `json:"images"`
}

// UpdateListingRequest is the request body for a partial update. Absent
// fields leave the stored values untouched; present fields must satisfy the
// same constraints as creation.
type UpdateListingRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Location    *string   `json:"location,omitempty"`
	Price       *float64  `json:"price,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Images      *[]string `json:"images,omitempty"`
}

// Validate checks the constraints on fields present in a partial update.
// Returns per-field messages keyed by the JSON field name.
func (r *UpdateListingRequest) Validate() map[string][]string {
	fieldErrors := make(map[string][]string)

	if r.Title != nil {
		if *r.Title == "" {
			fieldErrors["title"] = append(fieldErrors["title"], "The title field must not be empty.")
		}
		if len(*r.Title) > 255 {
			fieldErrors["title"] = append(fieldErrors["title"], "The title field must not be greater than 255 characters.")
		}
	}
	if r.Location != nil && *r.Location == "" {
		fieldErrors["location"] = append(fieldErrors["location"], "The location field must not be empty.")
	}
	if r.Price != nil && *r.Price < 0 {
		fieldErrors["price"] = append(fieldErrors["price"], "The price field must not be negative.")
	}
	if r.Category != nil && *r.Category == "" {
		fieldErrors["category"] = append(fieldErrors["category"], "The category field must not be empty.")
	}

	if len(fieldErrors) == 0 {
		return nil
	}
	return fieldErrors
}

// Empty reports whether the update carries no fields at all.
func (r *UpdateListingRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Location == nil &&
		r.Price == nil && r.Category == nil && r.Images == nil
}

// PageMeta describes the position of a page within the full collection
type PageMeta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

// ListingsPage is the paginated collection response
type ListingsPage struct {
	Data []Listing `json:"data"`
	Meta PageMeta  `json:"meta"`
}
