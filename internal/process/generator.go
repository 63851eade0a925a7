package process

import (
	"fmt"
	"math/rand"

	"github.com/jasonkoogler/csopesy-sim/internal/instruction"
)

// NewProgram deterministically generates a random-but-seeded program of
// between minIns and maxIns instructions, reproducing the mix used by
// original_source's Process constructor: every even-indexed instruction
// is a Print, odd-indexed ones are one of Declare/Add/Sub/a Sleep-body
// For, chosen by a die roll against the same seed. delay sets the Sleep
// body's tick count (at least 1, at most 255). The result always contains at least
// one Print — if the dice never produced one, a fallback Print is
// prepended.
func NewProgram(minIns, maxIns, delay int, seed int64, name string) []instruction.Instruction {
	rng := rand.New(rand.NewSource(seed))

	num := minIns
	if maxIns > minIns {
		num = minIns + rng.Intn(maxIns-minIns+1)
	}

	var code []instruction.Instruction
	varCount := 0
	var varNames []string

	for i := 0; i < num; i++ {
		if i%2 == 0 {
			code = append(code, instruction.Print{Msg: fmt.Sprintf("Step %d of %s", i+1, name)})
			continue
		}
		switch rng.Intn(4) {
		case 0:
			v := fmt.Sprintf("v%d", varCount)
			varCount++
			val := uint16(rng.Intn(100))
			varNames = append(varNames, v)
			code = append(code, instruction.Declare{Var: v, Literal: val})
		case 1:
			code = append(code, instruction.Add{
				Dest: fmt.Sprintf("v%d", rng.Intn(varCount+1)),
				Op1:  pickVar(rng, varNames),
				Op2:  fmt.Sprintf("%d", rng.Intn(50)),
			})
		case 2:
			code = append(code, instruction.Sub{
				Dest: fmt.Sprintf("v%d", rng.Intn(varCount+1)),
				Op1:  pickVar(rng, varNames),
				Op2:  fmt.Sprintf("%d", rng.Intn(50)),
			})
		default:
			repeats := 1 + rng.Intn(2)
			loopLen := 1 + rng.Intn(2)
			sleepTicks := uint8(delay)
			if delay <= 0 {
				sleepTicks = 1
			} else if delay > 255 {
				sleepTicks = 255
			}
			body := make([]instruction.Instruction, loopLen)
			for j := range body {
				body[j] = instruction.Sleep{Ticks: sleepTicks}
			}
			code = append(code, instruction.For{Body: body, Repeats: repeats})
		}
	}

	if !hasPrint(code) {
		code = append([]instruction.Instruction{instruction.Print{Msg: "Auto: Hello from " + name}}, code...)
	}
	return code
}

func pickVar(rng *rand.Rand, names []string) string {
	if len(names) == 0 {
		return "0"
	}
	return names[rng.Intn(len(names))]
}

func hasPrint(code []instruction.Instruction) bool {
	for _, instr := range code {
		if _, ok := instr.(instruction.Print); ok {
			return true
		}
	}
	return false
}
