package sir

// Constant-folding evaluators, ported from the original project's
// ConstEvaluator (one function per opcode name). Each returns its
// result and whether folding applied (both operands were constant).

func asConstInt(n Node) (int64, bool) {
	i, ok := CoerceInt(n)
	if !ok {
		return 0, false
	}
	return i.Value, true
}

func asConstBytes(n Node) ([]byte, bool) {
	b, ok := CoerceBytes(n)
	if !ok {
		return nil, false
	}
	return b.Data, true
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func evalUnary(name string, operand Node) (Node, bool) {
	if name == "OP_SIZE" {
		b, ok := asConstBytes(operand)
		if !ok {
			return nil, false
		}
		return NewInt(operand.Line(), int64(len(b))), true
	}

	v, ok := asConstInt(operand)
	if !ok {
		return nil, false
	}
	var result int64
	switch name {
	case "OP_ABS":
		if v < 0 {
			result = -v
		} else {
			result = v
		}
	case "OP_NOT":
		result = boolInt(v == 0)
	case "OP_0NOTEQUAL":
		result = boolInt(v != 0)
	case "OP_NEGATE":
		result = -v
	case "OP_1ADD":
		result = v + 1
	case "OP_1SUB":
		result = v - 1
	case "OP_2MUL":
		result = v * 2
	case "OP_2DIV":
		result = v / 2
	case "OP_INVERT":
		result = ^v
	default:
		return nil, false
	}
	return NewInt(operand.Line(), result), true
}

func evalBin(name string, left, right Node) (Node, bool) {
	switch name {
	case "OP_CAT":
		lb, ok1 := asConstBytes(left)
		rb, ok2 := asConstBytes(right)
		if !ok1 || !ok2 {
			return nil, false
		}
		return NewBytes(left.Line(), append(append([]byte{}, lb...), rb...)), true
	case "OP_EQUAL":
		lb, ok1 := asConstBytes(left)
		rb, ok2 := asConstBytes(right)
		if !ok1 || !ok2 {
			return nil, false
		}
		return NewInt(left.Line(), boolInt(string(lb) == string(rb))), true
	case "OP_LEFT":
		s, ok1 := asConstBytes(left)
		n, ok2 := asConstInt(right)
		if !ok1 || !ok2 || n < 0 || n > int64(len(s)) {
			return nil, false
		}
		return NewBytes(left.Line(), append([]byte{}, s[:n]...)), true
	case "OP_RIGHT":
		s, ok1 := asConstBytes(left)
		n, ok2 := asConstInt(right)
		if !ok1 || !ok2 || n < 0 || n > int64(len(s)) {
			return nil, false
		}
		return NewBytes(left.Line(), append([]byte{}, s[int64(len(s))-n:]...)), true
	}

	lv, ok1 := asConstInt(left)
	rv, ok2 := asConstInt(right)
	if !ok1 || !ok2 {
		return nil, false
	}

	var result int64
	switch name {
	case "OP_ADD":
		result = lv + rv
	case "OP_SUB":
		result = lv - rv
	case "OP_MUL":
		result = lv * rv
	case "OP_DIV":
		if rv == 0 {
			return nil, false
		}
		result = lv / rv
	case "OP_MOD":
		if rv == 0 {
			return nil, false
		}
		result = lv % rv
	case "OP_LSHIFT":
		result = lv << uint(rv)
	case "OP_RSHIFT":
		result = lv >> uint(rv)
	case "OP_LESSTHAN":
		result = boolInt(lv < rv)
	case "OP_LESSTHANOREQUAL":
		result = boolInt(lv <= rv)
	case "OP_GREATERTHAN":
		result = boolInt(lv > rv)
	case "OP_GREATERTHANOREQUAL":
		result = boolInt(lv >= rv)
	case "OP_MIN":
		if lv < rv {
			result = lv
		} else {
			result = rv
		}
	case "OP_MAX":
		if lv > rv {
			result = lv
		} else {
			result = rv
		}
	case "OP_NUMEQUAL", "OP_NUMEQUALVERIFY":
		result = boolInt(lv == rv)
	case "OP_NUMNOTEQUAL":
		result = boolInt(lv != rv)
	case "OP_BOOLAND":
		result = boolInt(lv != 0 && rv != 0)
	case "OP_BOOLOR":
		result = boolInt(lv != 0 || rv != 0)
	case "OP_AND":
		result = lv & rv
	case "OP_OR":
		result = lv | rv
	case "OP_XOR":
		result = lv ^ rv
	default:
		return nil, false
	}
	return NewInt(left.Line(), result), true
}

func evalVariableArgs(name string, operands []Node) (Node, bool) {
	switch name {
	case "OP_WITHIN":
		if len(operands) != 3 {
			return nil, false
		}
		v, ok1 := asConstInt(operands[0])
		lo, ok2 := asConstInt(operands[1])
		hi, ok3 := asConstInt(operands[2])
		if !ok1 || !ok2 || !ok3 {
			return nil, false
		}
		return NewInt(operands[0].Line(), boolInt(lo <= v && v < hi)), true
	case "OP_SUBSTR":
		if len(operands) != 3 {
			return nil, false
		}
		s, ok1 := asConstBytes(operands[0])
		start, ok2 := asConstInt(operands[1])
		length, ok3 := asConstInt(operands[2])
		if !ok1 || !ok2 || !ok3 {
			return nil, false
		}
		if start < 0 || length < 0 || start+length > int64(len(s)) {
			return nil, false
		}
		return NewBytes(operands[0].Line(), append([]byte{}, s[start:start+length]...)), true
	default:
		return nil, false
	}
}
