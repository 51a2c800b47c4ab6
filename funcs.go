package eonwallet

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"os"
	"path"
	"sync"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/poseidon2"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/kzg"
	"github.com/consensys/gnark/logger"
	"github.com/schollz/progressbar/v3"
)

var permutation = sync.OnceValue(func() *poseidon2.Permutation {
	return poseidon2.NewPermutationWithSeed(HASH_T, HASH_RF, HASH_RP, HASH_SEED)
})

// Permutation exposes the native Poseidon2 permutation shared with the circuits.
func Permutation() *poseidon2.Permutation {
	return permutation()
}

func DecomposeG1(val bls12381.G1Affine) [2][2]fr.Element {
	var ixq, ixm, iyq, iym big.Int
	var exq, exm, eyq, eym fr.Element
	val.X.BigInt(&ixq)
	val.Y.BigInt(&iyq)
	ixq.DivMod(&ixq, fr.Modulus(), &ixm)
	iyq.DivMod(&iyq, fr.Modulus(), &iym)
	exq.SetBigInt(&ixq)
	exm.SetBigInt(&ixm)
	eyq.SetBigInt(&iyq)
	eym.SetBigInt(&iym)
	return [2][2]fr.Element{{exq, exm}, {eyq, eym}}
}

func HashG1(val bls12381.G1Affine) fr.Element {
	decompose := DecomposeG1(val)
	x := HashCompress(decompose[0][0], decompose[0][1])
	y := HashCompress(decompose[1][0], decompose[1][1])
	return HashCompress(x, y)
}

// HashCompress returns perm(x, y)[1] + y.
func HashCompress(x, y fr.Element) fr.Element {
	vars := [2]fr.Element{x, y}
	if err := permutation().Permutation(vars[:]); err != nil {
		// width is fixed at HASH_T, a failure here is a programming error
		panic(err)
	}
	var ret fr.Element
	ret.Add(&vars[1], &y)
	return ret
}

func HashSum(val ...fr.Element) fr.Element {
	var ret fr.Element
	for _, v := range val {
		ret = HashCompress(ret, v)
	}
	return ret
}

// HashBytes folds arbitrary bytes into the field in 31 byte chunks.
func HashBytes(data []byte) fr.Element {
	vals := make([]fr.Element, 0, len(data)/31+2)
	vals = append(vals, fr.NewElement(uint64(len(data))))
	for len(data) > 0 {
		n := min(31, len(data))
		var e fr.Element
		e.SetBytes(data[:n])
		vals = append(vals, e)
		data = data[n:]
	}
	return HashSum(vals...)
}

func ParseProvingKey(bytepk []byte, size int) (val []bls12381.G1Affine, err error) {
	var g1 bls12381.G1Affine
	buf := make([]byte, 8)
	reader := bytes.NewReader(bytepk)
	val = make([]bls12381.G1Affine, 0, size)
	for n := 0; n < size; n++ {
		for i := 0; i < 6; i++ {
			if _, err = io.ReadFull(reader, buf); err != nil {
				return
			}
			g1.X[i] = binary.BigEndian.Uint64(buf)
		}
		for i := 0; i < 6; i++ {
			if _, err = io.ReadFull(reader, buf); err != nil {
				return
			}
			g1.Y[i] = binary.BigEndian.Uint64(buf)
		}
		val = append(val, g1)
	}
	return
}

// ReadProvingKey loads sc canonical and sl lagrange SRS points from the data
// cache, downloading the canonical file and deriving the lagrange one on a miss.
func ReadProvingKey(sc, sl int) (ck kzg.ProvingKey, lk kzg.ProvingKey, err error) {
	if sl <= 0 || sl&(sl-1) != 0 {
		err = errors.New("invalid sl")
		return
	}
	dir := DataCacheDir()
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	log := logger.Logger().With().Str("component", "srs").Logger()
	pathck := path.Join(dir, "SRS.CK.BIN")
	pathlk := path.Join(dir, fmt.Sprintf("SRS.LK.%v.BIN", sl))
	want := SRSChecksum()
	byteck, errck := os.ReadFile(pathck)
	if errck != nil || !checksumMatches(byteck, want) {
		log.Info().Str("path", pathck).Msg("local srs cache not found; downloading")
		if byteck, err = download_srs_ck(pathck); err != nil {
			return
		}
		if !checksumMatches(byteck, want) {
			err = errors.New("downloaded srs does not match EON_SRS_CK_SHA256")
			return
		}
	}
	if len(byteck) < sc*96 {
		err = fmt.Errorf("srs holds %d points, %d required", len(byteck)/96, sc)
		return
	}
	if ck.G1, err = ParseProvingKey(byteck, sc); err != nil {
		return
	}
	bytelk, errlk := os.ReadFile(pathlk)
	if errlk != nil || len(bytelk) != sl*96 {
		log.Info().Str("path", pathlk).Int("size", sl).Msg("lagrange srs not cached; generating")
		lk.G1, err = generate_srs_lk(pathlk, ck.G1[:sl])
		return
	}
	lk.G1, err = ParseProvingKey(bytelk, sl)
	return
}

func checksumMatches(data []byte, want string) bool {
	if want == "" {
		return len(data) > 0
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) == want
}

func download_srs_ck(pathck string) ([]byte, error) {
	url := SRSDownloadURL()
	if url == "" {
		return nil, errors.New("EON_SRS_URL is not set")
	}
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("srs download: %s", resp.Status)
	}
	var buf bytes.Buffer
	bar := progressbar.DefaultBytes(resp.ContentLength, "Downloading SRSCK")
	if _, err := io.Copy(io.MultiWriter(&buf, bar), resp.Body); err != nil {
		return nil, err
	}
	byteck := buf.Bytes()
	return byteck, os.WriteFile(pathck, byteck, 0o644)
}

func generate_srs_lk(pathlk string, g1 []bls12381.G1Affine) ([]bls12381.G1Affine, error) {
	lk, err := kzg.ToLagrangeG1(g1)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for _, xy := range lk {
		for _, v := range xy.X {
			if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
				return nil, err
			}
		}
		for _, v := range xy.Y {
			if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
				return nil, err
			}
		}
	}
	if err := os.WriteFile(pathlk, buf.Bytes(), 0o644); err != nil {
		return nil, err
	}
	return lk, nil
}
