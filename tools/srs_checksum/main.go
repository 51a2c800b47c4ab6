package main

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/kzg"

	"github.com/eon-protocol/eonwallet"
)

// reads SRS.CK.BIN from stdin; prints the value for EON_SRS_CK_SHA256 and
// the digests of the lagrange bases up to 2^<max log size>
func main() {
	maxLog := -1
	if len(os.Args) == 2 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil {
			log.Fatalln(err)
		}
		maxLog = n
	}
	file, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalln(err)
	}
	sc := len(file) / 96
	if sc == 0 || sc*96 != len(file) {
		log.Fatalln("invalid ck file;", "size:", len(file))
	}
	sum := sha256.Sum256(file)
	fmt.Println("EON_SRS_CK_SHA256=" + hex.EncodeToString(sum[:]))

	ck, err := eonwallet.ParseProvingKey(file, sc)
	if err != nil {
		log.Fatalln(err)
	}
	for i := 0; (1<<i) <= len(ck) && (maxLog < 0 || i <= maxLog); i++ {
		lk, err := kzg.ToLagrangeG1(ck[:1<<i])
		if err != nil {
			log.Fatalln(err)
		}
		// same layout as the cached lagrange file
		hasher := sha256.New()
		buf := make([]byte, 0, 96)
		for _, xy := range lk {
			buf = buf[:0]
			for _, v := range xy.X {
				buf = binary.BigEndian.AppendUint64(buf, v)
			}
			for _, v := range xy.Y {
				buf = binary.BigEndian.AppendUint64(buf, v)
			}
			hasher.Write(buf)
		}
		fmt.Printf("SRS.LK.%d.BIN %x\n", 1<<i, hasher.Sum(nil))
	}
}
