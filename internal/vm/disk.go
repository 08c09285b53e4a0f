package vm

// disk.go holds the block-addressed disk image. The running kernel only
// formats an empty disk and verifies the partition type at boot; the layout
// is kept cell-for-cell compatible with earlier disk images.

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"

	"github.com/jatgam/jcsim/internal/log"
)

// Disk geometry.
const (
	SectorSize = 128
	NumSectors = 1000
)

// Partition layout constants.
const (
	PartitionType Word = 42
	FATSize       Word = 20
)

// Sector-bitmap codes, one cell per sector.
const (
	BitmapFree    Word = 0
	BitmapUsed    Word = 1
	BitmapSystem  Word = 2
	BitmapInvalid Word = -1
)

var (
	// ErrNoDisk is returned when the disk image file cannot be opened.
	ErrNoDisk = errors.New("disk not found")

	// ErrDiskImage is returned when the image file cannot be decoded.
	ErrDiskImage = errors.New("bad disk image")

	// ErrPartition is returned when the partition type is not supported.
	ErrPartition = errors.New("unsupported file system")
)

// bootImage is written into the partition header sector at format time. It
// is the idle process in loader-record form: a halt at address zero.
var bootImage = [18]Word{0, 6, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, -1}

// bootImageOffset is the cell where bootImage begins inside sector 1.
const bootImageOffset = 110

// Disk simulates a fixed disk of NumSectors sectors persisted as a
// serialized blob at path.
type Disk struct {
	path    string
	sectors [][]Word

	log *log.Logger
}

// OpenDisk loads the disk image at path. The file must exist; an empty file
// is initialized to zeroed sectors and written back.
func OpenDisk(path string, logger *log.Logger) (*Disk, error) {
	if logger == nil {
		logger = log.DefaultLogger()
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoDisk, path)
	}
	defer f.Close()

	d := Disk{
		path: path,
		log:  logger,
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDiskImage, err)
	}

	if fi.Size() == 0 {
		d.sectors = blankSectors()
		if err := d.Sync(); err != nil {
			return nil, err
		}

		logger.Info("Initialized blank disk", "path", path)

		return &d, nil
	}

	if err := gob.NewDecoder(f).Decode(&d.sectors); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDiskImage, err)
	}

	if len(d.sectors) != NumSectors {
		return nil, fmt.Errorf("%w: %d sectors", ErrDiskImage, len(d.sectors))
	}

	for _, s := range d.sectors {
		if len(s) != SectorSize {
			return nil, fmt.Errorf("%w: short sector", ErrDiskImage)
		}
	}

	return &d, nil
}

// CreateDisk writes a blank image file at path, replacing any existing one,
// and returns the opened disk.
func CreateDisk(path string, logger *log.Logger) (*Disk, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoDisk, path)
	}

	f.Close()

	return OpenDisk(path, logger)
}

func blankSectors() [][]Word {
	sectors := make([][]Word, NumSectors)
	for i := range sectors {
		sectors[i] = make([]Word, SectorSize)
	}

	return sectors
}

// Sync writes the image back to its file.
func (d *Disk) Sync() error {
	f, err := os.Create(d.path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNoDisk, d.path)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(d.sectors); err != nil {
		return fmt.Errorf("%w: %s", ErrDiskImage, err)
	}

	return nil
}

// Sector returns the cells of sector n.
func (d *Disk) Sector(n int) []Word {
	return d.sectors[n]
}

// Formatted reports whether the disk carries a master boot record.
func (d *Disk) Formatted() bool {
	for _, cell := range d.sectors[0] {
		if cell != 0 {
			return true
		}
	}

	return false
}

// Verify checks the partition type in the master boot record.
func (d *Disk) Verify() error {
	typ := joinDigits(d.sectors[0][0:2])
	if typ != PartitionType {
		return fmt.Errorf("%w: type %d", ErrPartition, typ)
	}

	return nil
}

// Format writes the master boot record, the partition header, the idle boot
// image, and the sector allocation bitmap.
func (d *Disk) Format() {
	partSize := Word(NumSectors - 1)
	fatStart := partSize / 2
	bitmapSectors := (partSize + SectorSize - 1) / SectorSize
	slack := SectorSize - int(partSize)%SectorSize

	// Master boot record: partition type, start, and size as ASCII-decimal
	// digit cells.
	splitDigits(d.sectors[0][0:2], PartitionType)
	splitDigits(d.sectors[0][2:8], 1)
	splitDigits(d.sectors[0][8:14], partSize)

	// Partition header: FAT start and size, bitmap start and size.
	splitDigits(d.sectors[1][0:6], fatStart)
	splitDigits(d.sectors[1][6:12], FATSize)
	splitDigits(d.sectors[1][12:18], 2)
	splitDigits(d.sectors[1][18:24], bitmapSectors)

	copy(d.sectors[1][bootImageOffset:], bootImage[:])

	// Sector bitmap: the tail past the partition is invalid; the header,
	// bitmap, and FAT sectors belong to the system.
	d.markBitmap(int(partSize)+1, slack, BitmapInvalid)
	d.markBitmap(1, 1, BitmapSystem)
	d.markBitmap(2, 8, BitmapSystem)
	d.markBitmap(int(fatStart), int(FATSize), BitmapSystem)

	d.log.Info("Formatted disk",
		"partition_size", int64(partSize),
		"fat_start", int64(fatStart),
		"bitmap_sectors", int64(bitmapSectors))
}

// markBitmap sets the bitmap code for count sectors starting at the 1-based
// sector number. Bitmap cells are linear across the bitmap sectors, which
// begin at sector 2.
func (d *Disk) markBitmap(sector, count int, code Word) {
	for i := sector - 1; i < sector-1+count; i++ {
		d.sectors[2+i/SectorSize][i%SectorSize] = code
	}
}

// splitDigits writes v into cells as zero-padded decimal digits.
func splitDigits(cells []Word, v Word) {
	for i := len(cells) - 1; i >= 0; i-- {
		cells[i] = v % 10
		v /= 10
	}
}

// joinDigits reads zero-padded decimal digit cells back into a word.
func joinDigits(cells []Word) Word {
	var v Word
	for _, c := range cells {
		v = v*10 + c
	}

	return v
}
