package httpapi

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/features/query/averagefineofreader"
	"github.com/AntonStoeckl/library-loans/features/query/copyavailability"
	"github.com/AntonStoeckl/library-loans/features/query/listcopies"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BorrowResponse renders a core.Borrow. Dates are YYYY-MM-DD, the fine is null until the copy is returned.
type BorrowResponse struct {
	ID         string    `json:"id"`
	CopyID     string    `json:"copy_id"`
	ReaderID   string    `json:"reader_id"`
	BorrowedAt string    `json:"borrowed_at"`
	ReturnedAt *string   `json:"returned_at"`
	Fine       core.Fine `json:"fine"`
}

// ReserveResponse renders a core.Reserve.
type ReserveResponse struct {
	ID         string `json:"id"`
	CopyID     string `json:"copy_id"`
	ReaderID   string `json:"reader_id"`
	ReservedAt string `json:"reserved_at"`
	Active     bool   `json:"active"`
}

// BorrowsResponse is the list envelope for borrows.
type BorrowsResponse struct {
	Borrows []BorrowResponse `json:"borrows"`
}

// ReservesResponse is the list envelope for reservations.
type ReservesResponse struct {
	Reserves []ReserveResponse `json:"reserves"`
}

// AvailabilityResponse renders the derived state of a copy. ReaderID is omitted while the copy is available.
type AvailabilityResponse struct {
	CopyID   string `json:"copy_id"`
	Status   string `json:"status"`
	ReaderID string `json:"reader_id,omitempty"`
}

// AverageFineResponse renders the average fine of a reader.
type AverageFineResponse struct {
	ReaderID        string    `json:"reader_id"`
	AverageFine     core.Fine `json:"average_fine"`
	ReturnedBorrows int       `json:"returned_borrows"`
}

// ReaderResponse renders a registered reader.
type ReaderResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// CopyResponse renders an added copy.
type CopyResponse struct {
	ID       string `json:"id"`
	BookID   string `json:"book_id"`
	BranchID string `json:"branch_id"`
	Number   int    `json:"number"`
}

// CopyListingItem renders one copy of GET /copies.
type CopyListingItem struct {
	CopyID     string `json:"copy_id"`
	BookID     string `json:"book_id"`
	BranchID   string `json:"branch_id"`
	Number     int    `json:"number"`
	Status     string `json:"status"`
	IsBorrowed bool   `json:"is_borrowed"`
	IsReserved bool   `json:"is_reserved"`
}

// CopiesResponse is the list envelope for copies.
type CopiesResponse struct {
	Copies []CopyListingItem `json:"copies"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func toBorrowResponse(b core.Borrow) BorrowResponse {
	resp := BorrowResponse{
		ID:         b.ID.String(),
		CopyID:     b.CopyID.String(),
		ReaderID:   b.ReaderID.String(),
		BorrowedAt: core.FormatDate(b.BorrowedAt),
		Fine:       b.Fine,
	}

	if b.ReturnedAt != nil {
		returnedAt := core.FormatDate(*b.ReturnedAt)
		resp.ReturnedAt = &returnedAt
	}

	return resp
}

func toBorrowsResponse(borrows core.Borrows) BorrowsResponse {
	resp := BorrowsResponse{Borrows: make([]BorrowResponse, 0, len(borrows))}
	for _, b := range borrows {
		resp.Borrows = append(resp.Borrows, toBorrowResponse(b))
	}

	return resp
}

func toReserveResponse(r core.Reserve) ReserveResponse {
	return ReserveResponse{
		ID:         r.ID.String(),
		CopyID:     r.CopyID.String(),
		ReaderID:   r.ReaderID.String(),
		ReservedAt: core.FormatDate(r.ReservedAt),
		Active:     r.Active,
	}
}

func toReservesResponse(reserves core.Reserves) ReservesResponse {
	resp := ReservesResponse{Reserves: make([]ReserveResponse, 0, len(reserves))}
	for _, r := range reserves {
		resp.Reserves = append(resp.Reserves, toReserveResponse(r))
	}

	return resp
}

func toAvailabilityResponse(a copyavailability.CopyAvailability) AvailabilityResponse {
	resp := AvailabilityResponse{
		CopyID: a.CopyID.String(),
		Status: a.Status.String(),
	}

	if a.Status != core.StatusAvailable {
		resp.ReaderID = a.ReaderID.String()
	}

	return resp
}

func toAverageFineResponse(a averagefineofreader.AverageFine) AverageFineResponse {
	return AverageFineResponse{
		ReaderID:        a.ReaderID.String(),
		AverageFine:     a.Average,
		ReturnedBorrows: a.ReturnedBorrows,
	}
}

func toReaderResponse(r core.Reader) ReaderResponse {
	return ReaderResponse{ID: r.ID.String(), Name: r.Name, Address: r.Address, Phone: r.Phone}
}

func toCopyResponse(c core.Copy) CopyResponse {
	return CopyResponse{ID: c.ID.String(), BookID: c.BookID.String(), BranchID: c.BranchID.String(), Number: c.Number}
}

func toCopiesResponse(listing listcopies.CopyListing) CopiesResponse {
	resp := CopiesResponse{Copies: make([]CopyListingItem, 0, len(listing.Copies))}
	for _, c := range listing.Copies {
		resp.Copies = append(resp.Copies, CopyListingItem{
			CopyID:     c.CopyID.String(),
			BookID:     c.BookID.String(),
			BranchID:   c.BranchID.String(),
			Number:     c.Number,
			Status:     c.Status.String(),
			IsBorrowed: c.IsBorrowed,
			IsReserved: c.IsReserved,
		})
	}

	return resp
}

// writeJSON encodes v as the response body. Encoding errors after the header is sent can only be dropped.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message, Status: status})
}
