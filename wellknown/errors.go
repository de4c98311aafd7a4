package wellknown

import "errors"

var errShortBody = errors.New("ergot/wellknown: body too short")
