/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package storage

import (
	"crypto/sha256"
	"hash"
)

func newSHA256() hash.Hash {
	return sha256.New()
}
