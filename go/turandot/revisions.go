// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package turandot

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// Revision is an enumeration for the protocol revisions of the chain. The
// revision of a block selects the constants table governing metering, limits,
// and fee derivation, as well as the feature set available to transactions.
type Revision int

// The list of revisions supported so far by Turandot.
const (
	R01_Overture Revision = iota
	R02_Aria
	R03_Cabaletta
	R99_UnknownNextRevision
)

// NewestSupportedRevision is the latest revision with a released constants
// table. Blocks beyond this revision are rejected by executors.
const NewestSupportedRevision = R03_Cabaletta

func (r Revision) String() string {
	switch r {
	case R01_Overture:
		return "Overture"
	case R02_Aria:
		return "Aria"
	case R03_Cabaletta:
		return "Cabaletta"
	case R99_UnknownNextRevision:
		return "UnknownNextRevision"
	default:
		return fmt.Sprintf("Revision(%d)", r)
	}
}

func (r Revision) MarshalJSON() ([]byte, error) {
	revString := r.String()
	reg := regexp.MustCompile(`Revision\([0-9]+\)`)
	if reg.MatchString(revString) {
		return nil, &json.UnsupportedValueError{}
	}
	return json.Marshal(revString)
}

func (r *Revision) UnmarshalJSON(data []byte) error {
	var s string
	err := json.Unmarshal(data, &s)
	if err != nil {
		return err
	}
	var revision Revision

	switch s {
	case "Overture":
		revision = R01_Overture
	case "Aria":
		revision = R02_Aria
	case "Cabaletta":
		revision = R03_Cabaletta
	case "UnknownNextRevision":
		revision = R99_UnknownNextRevision
	default:
		return &json.InvalidUnmarshalError{}
	}

	*r = revision
	return nil
}
