package domain

import "errors"

var (
	// ErrConfiguration marks a missing required credential or setting.
	ErrConfiguration = errors.New("configuration error")

	// ErrGeneration marks an empty or unparseable primary response.
	ErrGeneration = errors.New("generation failed")
	// ErrEmptyResponse: the primary service returned no text.
	ErrEmptyResponse = errors.New("empty response")
	// ErrNoJSONObject: no balanced brace pair was found in the response.
	ErrNoJSONObject = errors.New("no json object in response")
	// ErrMalformedJSON: the extracted span does not parse.
	ErrMalformedJSON = errors.New("malformed json")

	// ErrEnrichment marks a failed secondary scan. Never fatal.
	ErrEnrichment = errors.New("enrichment scan failed")
	// ErrStoreRead marks a corrupt backing file. Recovered as an empty collection.
	ErrStoreRead = errors.New("store read failed")
	// ErrNotFound marks a send with no matching newsletter.
	ErrNotFound = errors.New("no newsletter found to send")
	// ErrNoRecipients marks a send with an empty recipient set.
	ErrNoRecipients = errors.New("no recipients found")
	// ErrDelivery marks a failed delivery call.
	ErrDelivery = errors.New("delivery failed")
)
