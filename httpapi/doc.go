// Package httpapi exposes the loan coordinator over HTTP with julienschmidt/httprouter.
//
// Reader actions are POST /readers/:reader_id/{checkout,return,reserve,cancel} with {"copy_id": "<uuid>"}.
// They answer 201 with the record, 404 for an unknown reader, 400 for an unknown copy or an invalid body
// and 409 with a readable message for business rejections.
package httpapi
