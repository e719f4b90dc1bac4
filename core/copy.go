package core

import "github.com/google/uuid"

// Copy is one physical, trackable instance of a book at a branch.
// Number is unique within (BookID, BranchID). A Copy never changes after creation.
type Copy struct {
	ID       CopyID
	BookID   uuid.UUID
	BranchID uuid.UUID
	Number   int
}

// Reader is a library member. The loan engine only cares about its identity.
type Reader struct {
	ID      ReaderID
	Name    string
	Address string
	Phone   string
}
