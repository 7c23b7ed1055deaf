package device

import (
	"fmt"
	"os"

	"github.com/lima-vm/go-qcow2reader"
	"github.com/lima-vm/go-qcow2reader/image"
	"github.com/lima-vm/go-qcow2reader/image/qcow2"
	"github.com/sirupsen/logrus"
)

// Image is an opened device image. qcow2 images are read through their cluster
// mapping, everything else is read raw.
type Image struct {
	*FileReader

	Path   string
	Format image.Type

	file *os.File
	img  image.Image
}

// OpenImage opens path and detects its format
func OpenImage(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	img, err := qcow2reader.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to detect the format of %q: %w", path, err)
	}
	if q, ok := img.(*qcow2.Qcow2); ok && q.BackingFile != "" {
		logrus.Warnf("qcow2 image %q has backing file %q; clusters it provides read as zeroes", path, q.BackingFile)
	}
	if err := img.Readable(); err != nil {
		img.Close()
		f.Close()
		return nil, fmt.Errorf("image %q is not readable: %w", path, err)
	}
	if img.Size() < 0 {
		img.Close()
		f.Close()
		return nil, fmt.Errorf("image %q reports negative size %d", path, img.Size())
	}

	logrus.Debugf("opened %q as %s, %d bytes", path, img.Type(), img.Size())
	return &Image{
		FileReader: &FileReader{reader: img, size: uint64(img.Size())},
		Path:       path,
		Format:     img.Type(),
		file:       f,
		img:        img,
	}, nil
}

// Close releases the image and its file
func (i *Image) Close() error {
	err := i.img.Close()
	if cerr := i.file.Close(); err == nil {
		err = cerr
	}
	return err
}
