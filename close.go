package gribidx

import "errors"

// Close releases the index, every partition it opened and, for collections
// returned by Open, the block cache.
func (c *Collection) Close() error {
	if c == nil {
		return nil
	}
	err := c.Index.Close()
	if c.env != nil {
		err = errors.Join(err, c.env.close())
		c.env = nil
	}
	return err
}
