package httpapi

// CopyRequest is the body of all four reader actions.
type CopyRequest struct {
	CopyID string `json:"copy_id" validate:"required,uuid"`
}

// RegisterReaderRequest is the body of POST /readers.
type RegisterReaderRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"max=500"`
	Phone   string `json:"phone" validate:"required,max=32"`
}

// AddCopyRequest is the body of POST /copies.
type AddCopyRequest struct {
	BookID   string `json:"book_id" validate:"required,uuid"`
	BranchID string `json:"branch_id" validate:"required,uuid"`
}
