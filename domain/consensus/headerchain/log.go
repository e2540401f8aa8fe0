package headerchain

import "github.com/liuhongchao/alephium/infrastructure/logger"

var log = logger.RegisterSubsystem("HDRC")
