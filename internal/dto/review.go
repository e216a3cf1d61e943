package dto

// CreateReviewRequest is the body of POST /courses/:id/reviews.
type CreateReviewRequest struct {
	OfferingID *string `json:"offeringId" validate:"omitempty,uuid"`
	Rating     int     `json:"rating" validate:"rating"`
	Content    string  `json:"content" validate:"max=2000"`
}
