package minijs

import (
	"testing"
)

func TestArithmetic(t *testing.T) {
	expectLines(t, `
		print(1 + 2);
		print(10 / 4);
		print(7 % 3);
		print(2 ** 8);
		print("a" + 1);
		print(1 + "a");
		print("3" * 2);
		print(0 / 0);
	`,
		"3",
		"2.5",
		"1",
		"256",
		"a1",
		"1a",
		"6",
		"NaN",
	)
}

func TestComparisons(t *testing.T) {
	expectLines(t, `
		print(1 < 2, 2 <= 2, 3 > 2, 2 >= 3);
		print("a" < "b");
		print(1 == "1", 1 === "1");
		print(null == undefined, null === undefined);
		print(NaN == NaN);
	`,
		"true true true false",
		"true",
		"true false",
		"true false",
		"false",
	)
}

func TestLogicalOperators(t *testing.T) {
	expectLines(t, `
		print(0 || "fallback");
		print("left" && "right");
		print(null ?? "default");
		print(0 ?? "default");
		var called = false;
		function sideEffect() { called = true; return 1; }
		var r = true || sideEffect();
		print(called);
	`,
		"fallback",
		"right",
		"default",
		"0",
		"false",
	)
}

func TestCompoundAssignment(t *testing.T) {
	expectLines(t, `
		var n = 10;
		n += 5; print(n);
		n -= 3; print(n);
		n *= 2; print(n);
		var s = "a";
		s += "b"; print(s);
	`,
		"15",
		"12",
		"24",
		"ab",
	)
}

func TestIncrementDecrement(t *testing.T) {
	expectLines(t, `
		var i = 5;
		print(i++);
		print(i);
		print(++i);
		print(i--);
		print(--i);
	`,
		"5",
		"6",
		"7",
		"7",
		"5",
	)
}

func TestTemplateLiterals(t *testing.T) {
	expectLines(t, "let who = \"world\"; print(`hello ${who}, ${1 + 1}`);",
		"hello world, 2",
	)
}

// The five shapes of this: plain call, method call, constructor call,
// explicit binding, and arrow (lexical).

func TestThisPlainCallSloppy(t *testing.T) {
	expectLines(t, `
		function f() { return this === globalThis; }
		print(f());
	`,
		"true",
	)
}

func TestThisPlainCallStrict(t *testing.T) {
	expectLines(t, `
		"use strict";
		function f() { return this === undefined; }
		print(f());
	`,
		"true",
	)
}

func TestThisMethodCall(t *testing.T) {
	expectLines(t, `
		var obj = {
			name: "receiver",
			who: function () { return this.name; }
		};
		print(obj.who());

		var detached = obj.who;
		var other = { name: "other", who: detached };
		print(other.who());
	`,
		"receiver",
		"other",
	)
}

func TestThisConstructorCall(t *testing.T) {
	expectLines(t, `
		function Point(x, y) {
			this.x = x;
			this.y = y;
		}
		var p = new Point(3, 4);
		print(p.x, p.y);
		print(p instanceof Point);
	`,
		"3 4",
		"true",
	)
}

func TestThisExplicitBinding(t *testing.T) {
	expectLines(t, `
		function who() { return this.name; }
		var subject = { name: "subject" };
		print(who.call(subject));
		print(who.apply(subject, []));
		var bound = who.bind(subject);
		print(bound());
		var rebound = bound.call({ name: "ignored" });
		print(rebound);
	`,
		"subject",
		"subject",
		"subject",
		"subject",
	)
}

func TestThisArrowLexical(t *testing.T) {
	expectLines(t, `
		var obj = {
			name: "holder",
			make: function () {
				return () => this.name;
			}
		};
		var arrow = obj.make();
		print(arrow());
		print(arrow.call({ name: "ignored" }));
	`,
		"holder",
		"holder",
	)
}

func TestBindPartialApplication(t *testing.T) {
	expectLines(t, `
		function add(a, b, c) { return a + b + c; }
		var add10 = add.bind(null, 10);
		print(add10(2, 3));
	`,
		"15",
	)
}

func TestClassBasics(t *testing.T) {
	expectLines(t, `
		class Counter {
			constructor(start) {
				this.value = start;
			}
			bump() {
				this.value = this.value + 1;
				return this.value;
			}
			get doubled() { return this.value * 2; }
			static describe() { return "a counter"; }
		}
		var c = new Counter(10);
		print(c.bump());
		print(c.doubled);
		print(Counter.describe());
		print(c instanceof Counter);
	`,
		"11",
		"22",
		"a counter",
		"true",
	)
}

func TestClassInheritance(t *testing.T) {
	expectLines(t, `
		class Animal {
			constructor(name) { this.name = name; }
			speak() { return this.name + " makes a sound"; }
		}
		class Dog extends Animal {
			constructor(name) {
				super(name);
				this.kind = "dog";
			}
			speak() { return this.name + " barks"; }
		}
		var d = new Dog("Rex");
		print(d.speak());
		print(d.kind);
		print(d instanceof Dog, d instanceof Animal);
	`,
		"Rex barks",
		"dog",
		"true true",
	)
}

func TestClassDefaultConstructorForwards(t *testing.T) {
	expectLines(t, `
		class Base {
			constructor(x) { this.x = x; }
		}
		class Derived extends Base {}
		print(new Derived(9).x);
	`,
		"9",
	)
}

func TestClassConstructorRequiresNew(t *testing.T) {
	expectFault(t, `
		class C {}
		C();
	`, FaultTypeFailure)
}

func TestClassTDZ(t *testing.T) {
	expectFault(t, `
		new C();
		class C {}
	`, FaultUninitializedAccess)
}

func TestObjectLiteralAccessors(t *testing.T) {
	expectLines(t, `
		var celsius = {
			degrees: 25,
			get fahrenheit() { return this.degrees * 9 / 5 + 32; },
			set fahrenheit(f) { this.degrees = (f - 32) * 5 / 9; }
		};
		print(celsius.fahrenheit);
		celsius.fahrenheit = 212;
		print(celsius.degrees);
	`,
		"77",
		"100",
	)
}

func TestObjectShorthandAndComputed(t *testing.T) {
	expectLines(t, `
		var value = 3;
		var key = "dyn";
		var obj = { value, [key + "amic"]: true };
		print(obj.value, obj.dynamic);
	`,
		"3 true",
	)
}

func TestPrototypeChain(t *testing.T) {
	expectLines(t, `
		function Base() {}
		Base.prototype.greet = function () { return "hi from " + this.tag; };
		var obj = new Base();
		obj.tag = "instance";
		print(obj.greet());
		print(obj.hasOwnProperty("tag"), obj.hasOwnProperty("greet"));
	`,
		"hi from instance",
		"true false",
	)
}

func TestMissingPropertyIsUndefined(t *testing.T) {
	expectLines(t, `
		var obj = {};
		print(obj.nothing);
		print(typeof obj.nothing);
	`,
		"undefined",
		"undefined",
	)
}

func TestArrays(t *testing.T) {
	expectLines(t, `
		var a = [1, 2, 3];
		print(a.length);
		a.push(4);
		print(a[3], a.length);
		a[6] = 7;
		print(a.length, a[5]);
		print(a.indexOf(3));
		print([1, 2, 3].map(function (x) { return x * 2; }).join("-"));
	`,
		"3",
		"4 4",
		"7 undefined",
		"2",
		"2-4-6",
	)
}

func TestControlFlow(t *testing.T) {
	expectLines(t, `
		var out = [];
		for (let i = 0; i < 5; i++) {
			if (i === 1) continue;
			if (i === 4) break;
			out.push(i);
		}
		print(out.join(","));

		var n = 3;
		var acc = "";
		while (n > 0) { acc += n; n--; }
		print(acc);

		var k = 0;
		do { k++; } while (k < 3);
		print(k);
	`,
		"0,2,3",
		"321",
		"3",
	)
}

func TestSwitchFallthrough(t *testing.T) {
	expectLines(t, `
		function pick(v) {
			var out = "";
			switch (v) {
			case 1:
				out += "one ";
			case 2:
				out += "two";
				break;
			case 3:
				out += "three";
				break;
			default:
				out += "other";
			}
			return out;
		}
		print(pick(1));
		print(pick(2));
		print(pick(3));
		print(pick(9));
	`,
		"one two",
		"two",
		"three",
		"other",
	)
}

func TestTryCatchFinally(t *testing.T) {
	expectLines(t, `
		function f() {
			try {
				throw new Error("inner");
			} catch (e) {
				print("caught " + e.message);
				return "from catch";
			} finally {
				print("finally runs");
			}
		}
		print(f());
	`,
		"caught inner",
		"finally runs",
		"from catch",
	)
}

func TestFinallyOverridesOutcome(t *testing.T) {
	expectLines(t, `
		function f() {
			try {
				throw new Error("lost");
			} finally {
				return "finally wins";
			}
		}
		print(f());
	`,
		"finally wins",
	)
}

func TestThrownNonErrorValue(t *testing.T) {
	expectLines(t, `
		try {
			throw "plain string";
		} catch (e) {
			print(typeof e, e);
		}
	`,
		"string plain string",
	)
}

func TestTypeofDeleteVoid(t *testing.T) {
	expectLines(t, `
		print(typeof 1, typeof "s", typeof true, typeof undefined);
		print(typeof null, typeof {}, typeof print);
		print(typeof neverDeclared);
		print(void 0);
		var obj = { gone: 1 };
		print(delete obj.gone, obj.gone);
	`,
		"number string boolean undefined",
		"object object function",
		"undefined",
		"undefined",
		"true undefined",
	)
}

func TestArgumentsObject(t *testing.T) {
	expectLines(t, `
		function f() { return arguments.length + ":" + arguments[1]; }
		print(f("a", "b", "c"));
	`,
		"3:b",
	)
}

func TestNamedFunctionExpressionSelfReference(t *testing.T) {
	expectLines(t, `
		var fact = function inner(n) {
			return n <= 1 ? 1 : n * inner(n - 1);
		};
		print(fact(5));
		print(typeof inner);
	`,
		"120",
		"undefined",
	)
}

func TestCallingNonFunction(t *testing.T) {
	expectFault(t, `
		var notFn = 42;
		notFn();
	`, FaultTypeFailure)
}

func TestMemberAccessOnNullish(t *testing.T) {
	expectFault(t, `null.anything;`, FaultTypeFailure)
	expectFault(t, `undefined.anything;`, FaultTypeFailure)
}
