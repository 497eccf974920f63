package cache

import "errors"

var errSettled = errors.New("cache: transaction already settled")
