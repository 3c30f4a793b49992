package ipcsem

import "github.com/juju/loggo"

var logger = loggo.GetLogger("ipcsem")
