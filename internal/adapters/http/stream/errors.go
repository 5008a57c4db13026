package stream

import "errors"

// ErrUnknownTopic reports a topics filter naming a topic that is never published.
var ErrUnknownTopic = errors.New("unknown topic")
