package api

// TimeFormat renders the server clock as ISO-8601 UTC with milliseconds
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// timeResponse is the body of GET /api/time
type timeResponse struct {
	Now string `json:"now"`
}

// createItemResponse is the body of a successful POST /api/items
type createItemResponse struct {
	ID string `json:"id"`
}
