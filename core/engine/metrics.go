// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package engine

import (
	"time"

	"github.com/ethereum/go-ethereum/metrics"

	"github.com/scrtlabs/SecretNetwork-sub000/core/vm"
)

type opMetrics struct {
	calls    *metrics.Counter
	failures *metrics.Counter
	timer    *metrics.Timer
}

func newOpMetrics(op string) *opMetrics {
	return &opMetrics{
		calls:    metrics.NewRegisteredCounter("engine/"+op+"/calls", nil),
		failures: metrics.NewRegisteredCounter("engine/"+op+"/failures", nil),
		timer:    metrics.NewRegisteredTimer("engine/"+op+"/time", nil),
	}
}

var (
	opStats = map[vm.Operation]*opMetrics{
		vm.OpInstantiate: newOpMetrics("instantiate"),
		vm.OpExecute:     newOpMetrics("execute"),
		vm.OpMigrate:     newOpMetrics("migrate"),
		vm.OpQuery:       newOpMetrics("query"),
	}
	updateAdminStats = newOpMetrics("update_admin")

	gasMeter          = metrics.NewRegisteredMeter("engine/gas", nil)
	guestErrorCounter = metrics.NewRegisteredCounter("engine/guest_errors", nil)
)

// track records a finished call.
func (m *opMetrics) track(start time.Time, err error) {
	m.calls.Inc(1)
	if err != nil {
		m.failures.Inc(1)
	}
	m.timer.UpdateSince(start)
}
