package mining

import "github.com/liuhongchao/alephium/infrastructure/logger"

var log = logger.RegisterSubsystem("MINE")
