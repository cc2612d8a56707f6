// Copyright 2026 The sparsehash Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command sparsehashdump is a diagnostic tool: it loads a sparsehash
// stream and prints header fields and per-group occupancy statistics.
// It is not part of the persisted-format contract, and the stats
// output format may change between releases.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tsl-go/sparsehash"
)

func policyName(code uint8) string {
	switch code {
	case 0:
		return "power-of-two"
	case 1:
		return "prime"
	case 2:
		return "mod"
	default:
		return fmt.Sprintf("unknown(%d)", code)
	}
}

func run() error {
	path := flag.String("file", "", "path to a sparsehash stream (written by Save)")
	valueSize := flag.Int("value-size", 0, "fixed on-wire byte size of one encoded value; 0 prints header only")
	flag.Parse()

	if *path == "" {
		flag.Usage()
		return fmt.Errorf("sparsehashdump: -file is required")
	}

	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	defer f.Close()

	h, err := sparsehash.InspectHeader(f)
	if err != nil {
		return fmt.Errorf("sparsehashdump: reading header: %w", err)
	}

	fmt.Printf("hash_id        %#016x\n", h.HashID)
	fmt.Printf("policy         %s\n", policyName(h.PolicyCode))
	if h.PolicyCode == 2 {
		fmt.Printf("policy params  num=%d den=%d\n", h.ModNum, h.ModDen)
	}
	fmt.Printf("bucket_count   %d\n", h.N)
	fmt.Printf("group_width    %d\n", h.Width)
	fmt.Printf("group_count    %d\n", h.GroupCount)
	fmt.Printf("max_load_factor %.4f\n", h.MaxLoadFactor)
	fmt.Printf("size           %d\n", h.Size)
	if h.N > 0 {
		fmt.Printf("load_factor    %.4f\n", float64(h.Size)/float64(h.N))
	}

	if *valueSize == 0 && h.GroupCount > 0 {
		fmt.Println("\n(pass -value-size for per-group occupancy)")
		return nil
	}

	stats, err := sparsehash.InspectGroups(f, h, *valueSize)
	if err != nil {
		return fmt.Errorf("sparsehashdump: walking groups: %w", err)
	}

	empty, full := 0, 0
	fmt.Printf("\n%-10s %-6s\n", "group", "live")
	for _, s := range stats {
		fmt.Printf("%-10d %-6d\n", s.Index, s.Live)
		switch s.Live {
		case 0:
			empty++
		case h.Width:
			full++
		}
	}
	fmt.Printf("\nempty_groups   %d\n", empty)
	fmt.Printf("full_groups    %d\n", full)
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
