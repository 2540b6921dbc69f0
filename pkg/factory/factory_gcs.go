// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-bucketwatch.
//
// go-bucketwatch is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package factory

import (
	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
	"github.com/jeremyhahn/go-bucketwatch/pkg/gcs"
)

func init() {
	RegisterStorage("gcs", func(settings map[string]string) (common.Storage, error) {
		storage := gcs.New()
		if err := storage.Configure(settings); err != nil {
			return nil, err
		}
		return storage, nil
	})
}
