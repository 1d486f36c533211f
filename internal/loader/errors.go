package loader

import "errors"

// ErrInvalidURL is returned when a page URL is not an absolute http(s) URL.
var ErrInvalidURL = errors.New("page url must be an absolute http or https url")
