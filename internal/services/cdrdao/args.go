package cdrdao

import "strconv"

// ReadOptions describes one read-cd invocation.
type ReadOptions struct {
	Device       string
	Driver       string
	ReadRaw      bool
	ParanoiaMode int
	DataFile     string
	TOCFile      string
}

// ReadCDArgs builds the argument list for copying a whole disc into a single
// data file plus TOC:
//
//	read-cd           copy every track of the inserted disc
//	--read-raw        keep full 2352-byte sectors for data tracks
//	--device DEV      drive to read from
//	--driver DRV      only when configured; cdrdao autodetects otherwise
//	--paranoia-mode N audio read verification, 0 (none) to 3 (full)
//	--datafile FILE   raw sector output, all tracks back to back
//	TOCFILE           TOC describing the track layout inside FILE
func ReadCDArgs(opts ReadOptions) []string {
	args := []string{"read-cd"}
	if opts.ReadRaw {
		args = append(args, "--read-raw")
	}
	args = append(args, "--device", opts.Device)
	if opts.Driver != "" {
		args = append(args, "--driver", opts.Driver)
	}
	args = append(args,
		"--paranoia-mode", strconv.Itoa(opts.ParanoiaMode),
		"--datafile", opts.DataFile,
		opts.TOCFile,
	)
	return args
}
