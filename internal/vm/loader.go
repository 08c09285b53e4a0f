package vm

// loader.go holds the absolute loader.

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/jatgam/jcsim/internal/encoding"
	"github.com/jatgam/jcsim/internal/log"
)

// Loader parses absolute program text and stores it into RAM.
type Loader struct {
	ram *RAM
	log *log.Logger
}

// NewLoader creates a loader over ram.
func NewLoader(ram *RAM, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.DefaultLogger()
	}

	return &Loader{
		ram: ram,
		log: logger,
	}
}

// LoadFile loads the program in the named file. The result is the entry
// program counter, or a negative status: ErrFileOpen when the file cannot
// be read, otherwise any Load status.
func (l *Loader) LoadFile(name string) Word {
	f, err := os.Open(name)
	if err != nil {
		l.log.Error("cannot open program", "file", name, "err", err)
		return ErrFileOpen
	}
	defer f.Close()

	return l.Load(f)
}

// Load reads records from src into RAM until the entry record and returns
// the entry program counter. Cells are stored as records arrive, so a
// failed load leaves the records before the failure in place. Statuses:
// ErrAddress for a record outside RAM or a malformed line, and
// ErrNoEndOfProgram when src ends before an entry record.
func (l *Loader) Load(src io.Reader) Word {
	in := bufio.NewScanner(src)
	count := 0

	for in.Scan() {
		line := in.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, err := encoding.ParseRecord(line)
		if err != nil {
			l.log.Error("bad program line", "err", err)
			return ErrAddress
		}

		if rec.Entry() {
			l.log.Debug("loaded program", "cells", count, "entry", rec.Value)
			return Word(rec.Value)
		}

		if !l.ram.Store(Word(rec.Addr), Word(rec.Value)) {
			return ErrAddress
		}

		count++
	}

	return ErrNoEndOfProgram
}
