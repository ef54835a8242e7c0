package workbench

import (
	"io"

	"github.com/swind/go-enigma/retrace"
)

// Retrace copies the stack trace in r to w with the obfuscated frames
// renamed by the current mappings. Members inherited by a class of the
// jar resolve through the index.
func (c *Controller) Retrace(r io.Reader, w io.Writer, opts ...retrace.Option) error {
	s, err := c.session()
	if err != nil {
		return err
	}
	mapper := retrace.NewFrameRemapper(s.deobf.Mappings(), s.index)
	return retrace.New(mapper, opts...).Retrace(r, w)
}
